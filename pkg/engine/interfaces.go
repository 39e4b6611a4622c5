package engine

import (
	"context"
)

// Parser turns raw fragment text into a ProjectConfig.
// Implementations must reject unsupported revisions with ErrCodeUnsupportedRevision
// and malformed documents with ErrCodeParse.
type Parser interface {
	Parse(id string, data []byte) (*ProjectConfig, error)
}

// FragmentSource locates and fetches specification fragments.
type FragmentSource interface {
	// Locate maps an extends entry, relative to the fragment it appears in,
	// to a canonical identifier. Two references to the same fragment must
	// yield the same identifier.
	Locate(from, ref string) (string, error)

	// Fetch returns the raw text of a fragment or an ErrCodeFragmentNotFound error.
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Lookup asks a value store for a secret's current value.
// found is false when the store has no value for the name.
type Lookup func(ctx context.Context, name string) (value string, found bool, err error)
