// Package policy lints secret specifications with Open Policy Agent.
//
// Policies are Rego modules. Each module defines a deny set in its own
// package; every element of the set becomes a Violation. An element may be a
// plain string message or an object:
//
//	{"message": "...", "severity": "warning", "secret": "NAME", "profile": "default"}
//
// Missing fields fall back to the policy's name and severity.
//
// # Input
//
// BuildInput turns a resolved merge order into the document policies see as
// input:
//
//	{
//	  "project":    {"name": "app", "revision": "1.0"},
//	  "fragments":  [{"id": "...", "name": "...", "extends": [], "profiles": []}],
//	  "profiles":   ["default", "production"],
//	  "effective":  {"default": {"DATABASE_URL": {"description": "...", "required": true,
//	                 "has_default": false, "mandatory": true, "fragment": "...", "tier": "default"}}},
//	  "signatures": [{"name": "DATABASE_URL", "identifier": "database_url", "union": "mandatory", ...}]
//	}
//
// Default values never reach policies; only has_default is exposed.
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"policies/"}); err != nil {
//	    return err
//	}
//	result, err := eng.Evaluate(ctx, policy.BuildInput(order))
//
// # Built-in Policies
//
//  1. required-with-default - a required secret that also has a default (warning)
//  2. missing-description - a secret with no description (info)
//  3. secret-naming - a name that is not upper snake case (warning)
//  4. profile-only-secret - a secret missing from the default profile (info)
//
// # Custom Policies
//
// Files ending in .rego are named after the file and take their description
// from the leading comment block. Files ending in .json hold a Policy object.
//
//	# Production must not rely on defaults.
//	package custom.production_defaults
//
//	deny contains violation if {
//	    some name, secret in input.effective.production
//	    secret.has_default
//	    violation := {"message": sprintf("%s uses a default in production", [name]), "secret": name}
//	}
package policy
