// Package keyring stores secrets in the operating system keychain.
//
// Entries use the service "secretspec/<project>" and the user
// "<profile>:<key>".
package keyring

import (
	"context"
	"errors"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/secretspec/secretspec/pkg/backend"
)

// Scheme is the URI scheme of this backend.
const Scheme = "keyring"

// Info describes the backend for registration.
var Info = backend.Info{
	Scheme:      Scheme,
	Description: "System keychain (macOS Keychain, Secret Service, Windows Credential Manager)",
	Examples:    []string{"keyring://"},
}

// Backend is a keychain-backed store.
type Backend struct{}

// New creates a keychain backend. The URI carries no options.
func New(backend.Spec) (backend.Backend, error) {
	return &Backend{}, nil
}

// Service returns the keychain service name for project.
func Service(project string) string {
	return "secretspec/" + project
}

// User returns the keychain user name for a profile and key.
func User(profile, key string) string {
	return profile + ":" + key
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return Scheme }

// AllowsWrite implements backend.Backend.
func (b *Backend) AllowsWrite() bool { return true }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

// Get implements backend.Backend.
func (b *Backend) Get(_ context.Context, project, profile, key string) (string, bool, error) {
	v, err := gokeyring.Get(Service(project), User(profile, key))
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, backend.Failed(Scheme, "get", err)
	}
	return v, true, nil
}

// Set implements backend.Backend.
func (b *Backend) Set(_ context.Context, project, profile, key, value string) error {
	if err := gokeyring.Set(Service(project), User(profile, key), value); err != nil {
		return backend.Failed(Scheme, "set", err)
	}
	return nil
}
