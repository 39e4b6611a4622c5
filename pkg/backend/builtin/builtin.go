// Package builtin registers the bundled backends.
package builtin

import (
	"github.com/secretspec/secretspec/pkg/backend"
	"github.com/secretspec/secretspec/pkg/backend/dotenv"
	"github.com/secretspec/secretspec/pkg/backend/env"
	"github.com/secretspec/secretspec/pkg/backend/keyring"
	"github.com/secretspec/secretspec/pkg/backend/onepassword"
	"github.com/secretspec/secretspec/pkg/backend/sqlite"
	"github.com/secretspec/secretspec/pkg/backend/vault"
)

// Register adds every bundled backend to r.
func Register(r *backend.Registry) error {
	entries := []struct {
		info    backend.Info
		factory backend.Factory
	}{
		{dotenv.Info, dotenv.New},
		{env.Info, env.New},
		{keyring.Info, keyring.New},
		{onepassword.Info, onepassword.New},
		{sqlite.Info, sqlite.New},
		{vault.Info, vault.New},
	}
	for _, e := range entries {
		if err := r.Register(e.info, e.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry with every bundled backend.
func NewRegistry() *backend.Registry {
	r := backend.NewRegistry()
	if err := Register(r); err != nil {
		// Bundled schemes are distinct constants.
		panic(err)
	}
	return r
}
