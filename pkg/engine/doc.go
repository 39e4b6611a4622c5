// Package engine provides the core types and algorithms of secret specification
// resolution.
//
// # Overview
//
// A project declares the secrets it needs in one or more specification fragments
// (secretspec.toml files). Fragments may extend other fragments. The engine turns
// such a hierarchy into concrete answers:
//
//  1. Resolve - walk the extends graph and produce a merge order (Resolver)
//  2. Merge - fold the order into one effective set per profile (Merge)
//  3. Derive - classify each secret as mandatory or optional (ComputeSignatures)
//  4. Validate - check stored values against an effective set (Validate)
//
// # Merge Order
//
// Resolution is a depth-first, post-order traversal: parents listed in extends
// are visited left to right and emitted before the fragment that extends them.
// A fragment reachable along several paths is emitted once, at its first
// position. Cycles are reported with the full path, for example
// "/app/secretspec.toml -> /shared/secretspec.toml -> /app/secretspec.toml".
//
// # Profiles
//
// Every fragment may declare a "default" profile. When merging for profile P,
// each fragment contributes its default definitions and then its P definitions.
// Definitions replace each other as a whole.
//
// # Errors
//
// All failures are *EngineError values carrying a class and a code such as
// CIRCULAR_INHERITANCE or UNSUPPORTED_REVISION. Use errors.Is with the
// exported sentinels:
//
//	if errors.Is(err, engine.ErrCircularInheritance) {
//	    fmt.Println(engine.CyclePath(err))
//	}
package engine
