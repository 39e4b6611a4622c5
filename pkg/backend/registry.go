package backend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/secretspec/secretspec/pkg/engine"
)

type registration struct {
	info    Info
	factory Factory
}

// Registry maps URI schemes to backend factories.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]registration)}
}

// Register adds a backend factory under info.Scheme.
func (r *Registry) Register(info Info, factory Factory) error {
	scheme := strings.ToLower(strings.TrimSpace(info.Scheme))
	if scheme == "" || factory == nil {
		return errors.New("invalid backend registration")
	}
	info.Scheme = scheme

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[scheme]; exists {
		return fmt.Errorf("backend %q already registered", scheme)
	}
	r.backends[scheme] = registration{info: info, factory: factory}
	return nil
}

// Lookup returns the registration info for scheme.
func (r *Registry) Lookup(scheme string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.backends[strings.ToLower(scheme)]
	return reg.info, ok
}

// List returns all registered backends sorted by scheme.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.backends))
	for _, reg := range r.backends {
		out = append(out, reg.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scheme < out[j].Scheme })
	return out
}

// ParseURI parses raw and checks that its scheme is registered.
func (r *Registry) ParseURI(raw string) (Spec, error) {
	spec, err := parseSpec(raw, func(scheme string) bool {
		info, ok := r.Lookup(scheme)
		return ok && info.PathOnly
	})
	if err != nil {
		return Spec{}, err
	}

	if _, ok := r.Lookup(spec.Scheme); !ok {
		return Spec{}, invalidURI(raw, fmt.Sprintf("unknown backend scheme %q", spec.Scheme), nil).
			WithDetail("known", r.schemes())
	}
	return spec, nil
}

// Open parses raw and instantiates the backend.
func (r *Registry) Open(raw string) (Backend, error) {
	spec, err := r.ParseURI(raw)
	if err != nil {
		return nil, err
	}
	return r.OpenSpec(spec)
}

// OpenSpec instantiates the backend for an already parsed spec.
func (r *Registry) OpenSpec(spec Spec) (Backend, error) {
	r.mu.RLock()
	reg, ok := r.backends[spec.Scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, invalidURI(spec.Raw, fmt.Sprintf("unknown backend scheme %q", spec.Scheme), nil)
	}

	b, err := reg.factory(spec)
	if err != nil {
		var ee *engine.EngineError
		if errors.As(err, &ee) {
			return nil, err
		}
		return nil, invalidURI(spec.Raw, fmt.Sprintf("cannot open %s backend", spec.Scheme), err)
	}
	return b, nil
}

func (r *Registry) schemes() []string {
	infos := r.List()
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Scheme
	}
	return out
}
