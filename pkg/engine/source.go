package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileSource reads fragments from the local filesystem.
// Identifiers are cleaned absolute paths of secretspec.toml files.
type FileSource struct{}

// NewFileSource creates a filesystem fragment source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Locate resolves ref relative to the directory of from. A directory reference
// points at the secretspec.toml inside it; a reference ending in .toml is used as is.
// An empty from resolves against the working directory.
func (s *FileSource) Locate(from, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", NewConfigError("empty extends reference", nil).
			WithCode(ErrCodeFragmentNotFound).
			WithFragment(from)
	}

	target := ref
	if !filepath.IsAbs(target) && from != "" {
		target = filepath.Join(filepath.Dir(from), ref)
	}
	if !strings.HasSuffix(target, ".toml") {
		target = filepath.Join(target, SpecFileName)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", NewConfigError(fmt.Sprintf("cannot resolve reference %q", ref), err).
			WithCode(ErrCodeFragmentNotFound).
			WithFragment(from)
	}
	return filepath.Clean(abs), nil
}

// Fetch reads the fragment file.
func (s *FileSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(id)
	if err != nil {
		msg := "failed to read fragment"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "fragment not found"
		}
		return nil, NewConfigError(msg, err).
			WithCode(ErrCodeFragmentNotFound).
			WithFragment(id)
	}
	return data, nil
}

// MemorySource serves fragments from memory. Identifiers are slash-separated
// paths, which keeps bundled specifications and tests independent of the OS.
type MemorySource struct {
	mu        sync.RWMutex
	fragments map[string][]byte
}

// NewMemorySource creates a source pre-populated with the given fragments.
func NewMemorySource(fragments map[string]string) *MemorySource {
	m := &MemorySource{fragments: make(map[string][]byte, len(fragments))}
	for id, text := range fragments {
		m.fragments[path.Clean("/"+id)] = []byte(text)
	}
	return m
}

// Add stores or replaces a fragment.
func (m *MemorySource) Add(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments[path.Clean("/"+id)] = []byte(text)
}

// IDs returns the stored identifiers in sorted order.
func (m *MemorySource) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.fragments))
	for id := range m.fragments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Locate resolves ref like FileSource does, using slash paths rooted at "/".
func (m *MemorySource) Locate(from, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", NewConfigError("empty extends reference", nil).
			WithCode(ErrCodeFragmentNotFound).
			WithFragment(from)
	}

	target := ref
	if !strings.HasPrefix(ref, "/") {
		base := "/"
		if from != "" {
			base = path.Dir(from)
		}
		target = path.Join(base, ref)
	}
	if !strings.HasSuffix(target, ".toml") {
		target = path.Join(target, SpecFileName)
	}
	return path.Clean("/" + target), nil
}

// Fetch returns the stored text of a fragment.
func (m *MemorySource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.fragments[id]
	m.mu.RUnlock()
	if !ok {
		return nil, NewConfigError("fragment not found", nil).
			WithCode(ErrCodeFragmentNotFound).
			WithFragment(id)
	}
	return data, nil
}
