package backend

import (
	"context"

	"github.com/secretspec/secretspec/pkg/engine"
)

// Backend stores secret values for a project and profile.
//
// Implementations must be safe for concurrent use and must never log values.
type Backend interface {
	// Name returns the URI scheme the backend was registered under.
	Name() string

	// Get returns the stored value and whether one exists.
	Get(ctx context.Context, project, profile, key string) (string, bool, error)

	// Set stores a value. Read-only backends return ErrWriteNotSupported.
	Set(ctx context.Context, project, profile, key, value string) error

	// AllowsWrite reports whether Set is supported.
	AllowsWrite() bool

	// Close releases any held resources.
	Close() error
}

// Factory opens a backend for a parsed URI.
type Factory func(spec Spec) (Backend, error)

// Info describes a registered backend.
type Info struct {
	// Scheme is the URI scheme, e.g. "keyring".
	Scheme string `json:"scheme" yaml:"scheme"`

	// Description is a one-line summary for listings.
	Description string `json:"description" yaml:"description"`

	// Examples are sample URIs.
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`

	// PathOnly schemes address a local file; the URI authority is treated as
	// the first path segment.
	PathOnly bool `json:"-" yaml:"-"`

	// ReadOnly backends reject Set.
	ReadOnly bool `json:"read_only" yaml:"read_only"`
}

// WriteNotSupported builds the error returned by read-only backends.
func WriteNotSupported(name string) error {
	return engine.NewResolutionError("backend "+name+" is read-only", nil).
		WithCode(engine.ErrCodeWriteNotSupported).
		WithDetail("backend", name)
}

// Failed wraps an error raised while talking to a value store.
func Failed(name, op string, err error) error {
	return engine.NewBackendError(name+" "+op+" failed", err).
		WithDetail("backend", name).
		WithDetail("op", op)
}
