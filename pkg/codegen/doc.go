// Package codegen turns computed secret signatures into source code.
//
// GenerateGo renders a Go package with one struct holding the union types
// and one struct per profile holding that profile's exact types. Mandatory
// secrets become string fields, optional ones *string.
//
// ScriptEvaluator runs a Starlark script for any other target. The script
// sees the globals project, package, profiles and secrets and sets output
// or files. Loops must live inside functions:
//
//	def render():
//	    return "\n".join([s.identifier for s in secrets])
//
//	output = render()
package codegen
