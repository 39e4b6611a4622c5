// Package config parses secretspec.toml fragments and the per-user config file.
//
// # Overview
//
// Fragments are decoded with go-toml in strict mode, so unknown keys are
// rejected with a line and column. Decoded documents are then checked in
// three passes:
//
//   - the project revision must be present and equal to "1.0"
//   - struct rules and secret names are checked with validator
//   - the whole document is unified with the built-in CUE schema
//
// Every failure is an *engine.EngineError carrying the fragment identifier,
// so callers can point at the offending file.
//
// # Components
//
// Parser: Implements engine.Parser. Safe for concurrent use, which the
// inheritance resolver relies on when prefetching parents.
//
// SchemaRegistry: Holds compiled CUE schemas. "project" validates fragments,
// "user" validates the user config. Further schemas can be registered.
//
// UserConfig: Per-user defaults for backend and profile, globally and per
// project. Stored at <user config dir>/secretspec/config.toml.
//
// Watcher: Re-runs a reload function when any fragment of a project changes.
//
// # Usage Example
//
//	parser := config.NewParser()
//	resolver := engine.NewResolver(engine.NewFileSource(), parser)
//
//	order, err := resolver.ResolveRoot(ctx, "secretspec.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	set := engine.Merge(order, "production")
//
// # Fragment Layout
//
//	[project]
//	name = "app"
//	revision = "1.0"
//	extends = ["../shared"]
//
//	[profiles.default]
//	DATABASE_URL = { description = "Postgres connection string" }
//	LOG_LEVEL = { description = "Log level", required = false, default = "info" }
//
// Secrets are required unless required = false is given.
package config
