// Package backend selects and opens value stores.
//
// A backend is addressed by a URI such as keyring://, dotenv://.env.local or
// vault://vault.example.com:8200/secret?token_env=VAULT_TOKEN. The Registry
// maps schemes to factories; the builtin subpackage registers the bundled
// backends. Shorthands are accepted: "keyring" means keyring:// and
// "dotenv:.env" means dotenv://.env.
//
// The Resolver chooses a profile and a backend for a run. Each is taken from
// the first source that provides it: explicit override, SECRETSPEC_PROFILE or
// SECRETSPEC_PROVIDER, the per-project user default, the global user default,
// and finally the built-in default (profile "default", keyring://).
package backend
