package engine

import (
	"context"
	"sync"
)

// fixtureParser returns pre-built fragments keyed by identifier instead of parsing text.
type fixtureParser struct {
	configs map[string]*ProjectConfig
}

func (p *fixtureParser) Parse(id string, _ []byte) (*ProjectConfig, error) {
	cfg, ok := p.configs[id]
	if !ok {
		return nil, NewConfigError("no fixture for fragment", nil).
			WithCode(ErrCodeParse).
			WithFragment(id)
	}
	c := *cfg
	c.ID = id
	return &c, nil
}

// countingSource records how often each identifier is fetched.
type countingSource struct {
	FragmentSource

	mu      sync.Mutex
	fetches map[string]int
}

func (s *countingSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	s.fetches[id]++
	s.mu.Unlock()
	return s.FragmentSource.Fetch(ctx, id)
}

func (s *countingSource) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[id]
}

// aliasSource resolves the reference "self" to the referencing fragment.
type aliasSource struct {
	*MemorySource
}

func (s aliasSource) Locate(from, ref string) (string, error) {
	if ref == "self" {
		return from, nil
	}
	return s.MemorySource.Locate(from, ref)
}

func strPtr(s string) *string {
	return &s
}

func required() SecretDefinition {
	return SecretDefinition{Required: true}
}

func withDefault(required bool, value string) SecretDefinition {
	return SecretDefinition{Required: required, Default: strPtr(value)}
}

func optional() SecretDefinition {
	return SecretDefinition{Required: false}
}

// fragment builds a ProjectConfig stored under /<dir>/secretspec.toml.
func fragment(dir string, extends []string, profiles map[string]ProfileSecrets) *ProjectConfig {
	if profiles == nil {
		profiles = map[string]ProfileSecrets{}
	}
	return &ProjectConfig{
		ID:       "/" + dir + "/" + SpecFileName,
		Name:     dir,
		Revision: SupportedRevision,
		Extends:  extends,
		Profiles: profiles,
	}
}

// newFixture registers fragments in a memory source and returns a counting
// source plus a parser that serves them.
func newFixture(frags ...*ProjectConfig) (*countingSource, *fixtureParser) {
	mem := NewMemorySource(nil)
	parser := &fixtureParser{configs: make(map[string]*ProjectConfig)}
	for _, f := range frags {
		mem.Add(f.ID, "# "+f.Name)
		parser.configs[f.ID] = f
	}
	return &countingSource{FragmentSource: mem, fetches: make(map[string]int)}, parser
}

func resolveFixture(root string, opts []ResolverOption, frags ...*ProjectConfig) (*MergeOrder, *countingSource, error) {
	source, parser := newFixture(frags...)
	r := NewResolver(source, parser, opts...)
	order, err := r.ResolveRoot(context.Background(), root)
	return order, source, err
}
