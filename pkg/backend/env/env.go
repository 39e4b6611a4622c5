// Package env reads secrets from the process environment. It is read-only.
package env

import (
	"context"
	"os"

	"github.com/secretspec/secretspec/pkg/backend"
)

// Scheme is the URI scheme of this backend.
const Scheme = "env"

// Info describes the backend for registration.
var Info = backend.Info{
	Scheme:      Scheme,
	Description: "Process environment (read-only)",
	Examples:    []string{"env://"},
	ReadOnly:    true,
}

// Backend looks secrets up by name in the environment.
type Backend struct {
	lookup func(string) (string, bool)
}

// New creates an environment backend.
func New(backend.Spec) (backend.Backend, error) {
	return &Backend{lookup: os.LookupEnv}, nil
}

// NewWithLookup creates a backend over a custom lookup function.
func NewWithLookup(lookup func(string) (string, bool)) *Backend {
	return &Backend{lookup: lookup}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return Scheme }

// AllowsWrite implements backend.Backend.
func (b *Backend) AllowsWrite() bool { return false }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

// Get implements backend.Backend.
func (b *Backend) Get(_ context.Context, _, _, key string) (string, bool, error) {
	v, ok := b.lookup(key)
	return v, ok, nil
}

// Set always fails with WRITE_NOT_SUPPORTED.
func (b *Backend) Set(context.Context, string, string, string, string) error {
	return backend.WriteNotSupported(Scheme)
}
