// Package dotenv stores secrets in a .env file.
//
// Values are keyed by secret name only; the project and profile are not part
// of the key, so one file serves one project and profile.
package dotenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/secretspec/secretspec/pkg/backend"
)

// Scheme is the URI scheme of this backend.
const Scheme = "dotenv"

// DefaultPath is used for dotenv:// with no path.
const DefaultPath = ".env"

// Info describes the backend for registration.
var Info = backend.Info{
	Scheme:      Scheme,
	Description: "Plain-text .env file",
	Examples:    []string{"dotenv://.env", "dotenv:///etc/app/.env"},
	PathOnly:    true,
}

// Backend reads and writes one .env file.
type Backend struct {
	path string
	mu   sync.Mutex
}

// New opens the file named by spec.Path, defaulting to .env.
func New(spec backend.Spec) (backend.Backend, error) {
	path := spec.Path
	if path == "" {
		path = DefaultPath
	}
	return &Backend{path: path}, nil
}

// Path returns the file location.
func (b *Backend) Path() string {
	return b.path
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return Scheme }

// AllowsWrite implements backend.Backend.
func (b *Backend) AllowsWrite() bool { return true }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

// Get implements backend.Backend.
func (b *Backend) Get(_ context.Context, _, _, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements backend.Backend. Other entries in the file are preserved.
// Values that parse as integers are written unquoted, so leading zeros are lost.
func (b *Backend) Set(_ context.Context, _, _, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		return err
	}
	values[key] = value

	content, err := godotenv.Marshal(values)
	if err != nil {
		return backend.Failed(Scheme, "set", err)
	}
	if err := os.WriteFile(b.path, []byte(content+"\n"), 0o600); err != nil {
		return backend.Failed(Scheme, "set", fmt.Errorf("write %s: %w", b.path, err))
	}
	return nil
}

// All returns every entry in the file.
func (b *Backend) All() (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read()
}

// read loads the file. A missing file is empty.
func (b *Backend) read() (map[string]string, error) {
	values, err := godotenv.Read(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, backend.Failed(Scheme, "read", fmt.Errorf("%s: %w", b.path, err))
	}
	return values, nil
}
