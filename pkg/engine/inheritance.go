package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Resolver walks the extends graph of a root fragment and produces a merge order.
type Resolver struct {
	source   FragmentSource
	parser   Parser
	logger   zerolog.Logger
	prefetch bool
	limit    int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for traversal diagnostics.
func WithResolverLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger.With().Str("component", "inheritance").Logger()
	}
}

// WithPrefetch fetches the extends entries of each fragment concurrently before
// they are visited. Visiting stays in declaration order.
func WithPrefetch(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.prefetch = enabled
	}
}

// WithPrefetchLimit bounds the number of concurrent fetches per fragment.
func WithPrefetchLimit(n int) ResolverOption {
	return func(r *Resolver) {
		r.limit = n
	}
}

// NewResolver creates a resolver reading fragments from source.
func NewResolver(source FragmentSource, parser Parser, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source: source,
		parser: parser,
		logger: zerolog.Nop(),
		limit:  8,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MergeOrder is the result of inheritance resolution: every reachable fragment
// exactly once, ancestors before descendants, root last.
type MergeOrder struct {
	// Fragments is the post-order traversal.
	Fragments []*ProjectConfig

	// edges maps each fragment to the identifiers of its extends entries.
	edges map[string][]string
}

// Root returns the root fragment.
func (o *MergeOrder) Root() *ProjectConfig {
	if len(o.Fragments) == 0 {
		return nil
	}
	return o.Fragments[len(o.Fragments)-1]
}

// IDs returns the fragment identifiers in merge order.
func (o *MergeOrder) IDs() []string {
	ids := make([]string, len(o.Fragments))
	for i, f := range o.Fragments {
		ids[i] = f.ID
	}
	return ids
}

// Parents returns the resolved extends identifiers of a fragment in declaration order.
func (o *MergeOrder) Parents(id string) []string {
	return o.edges[id]
}

type visitState int

const (
	unvisited visitState = iota
	onStack
	finished
)

// resolution holds the state of a single Resolve call.
type resolution struct {
	r      *Resolver
	loaded map[string]*ProjectConfig
	failed map[string]error
	state  map[string]visitState
	stack  []string
	order  []*ProjectConfig
	edges  map[string][]string
}

// ResolveRoot locates, fetches and parses the root fragment, then resolves it.
func (r *Resolver) ResolveRoot(ctx context.Context, ref string) (*MergeOrder, error) {
	id, err := r.source.Locate("", ref)
	if err != nil {
		return nil, err
	}
	res := r.newResolution()
	root, err := res.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.run(ctx, root)
}

// Resolve computes the merge order for an already parsed root fragment.
// Any failure aborts the whole resolution and no partial order is returned.
func (r *Resolver) Resolve(ctx context.Context, root *ProjectConfig) (*MergeOrder, error) {
	if root == nil {
		return nil, NewConfigError("no root fragment", nil).WithCode(ErrCodeParse)
	}
	res := r.newResolution()
	res.loaded[root.ID] = root
	return res.run(ctx, root)
}

func (r *Resolver) newResolution() *resolution {
	return &resolution{
		r:      r,
		loaded: make(map[string]*ProjectConfig),
		failed: make(map[string]error),
		state:  make(map[string]visitState),
		edges:  make(map[string][]string),
	}
}

func (res *resolution) run(ctx context.Context, root *ProjectConfig) (*MergeOrder, error) {
	if err := res.visit(ctx, root); err != nil {
		return nil, err
	}

	res.r.logger.Debug().
		Str("root", root.ID).
		Int("fragments", len(res.order)).
		Msg("Inheritance resolved")

	return &MergeOrder{
		Fragments: res.order,
		edges:     res.edges,
	}, nil
}

// visit performs the depth-first post-order walk. A child that is still on the
// stack closes a cycle; a finished child is a shared ancestor and is skipped.
func (res *resolution) visit(ctx context.Context, cfg *ProjectConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := cfg.ID
	res.state[id] = onStack
	res.stack = append(res.stack, id)

	children := make([]string, 0, len(cfg.Extends))
	for _, ref := range cfg.Extends {
		childID, err := res.r.source.Locate(id, ref)
		if err != nil {
			return err
		}
		children = append(children, childID)
	}
	res.edges[id] = children

	if res.r.prefetch {
		res.prefetch(ctx, children)
	}

	for _, childID := range children {
		switch res.state[childID] {
		case onStack:
			return res.cycleError(childID)
		case finished:
			continue
		}

		child, err := res.load(ctx, childID)
		if err != nil {
			return err
		}
		if err := res.visit(ctx, child); err != nil {
			return err
		}
	}

	res.stack = res.stack[:len(res.stack)-1]
	res.state[id] = finished
	res.order = append(res.order, cfg)
	return nil
}

// load fetches and parses a fragment once per resolution.
func (res *resolution) load(ctx context.Context, id string) (*ProjectConfig, error) {
	if cfg, ok := res.loaded[id]; ok {
		return cfg, nil
	}
	if err, ok := res.failed[id]; ok {
		return nil, err
	}

	cfg, err := res.r.fetchAndParse(ctx, id)
	if err != nil {
		res.failed[id] = err
		return nil, err
	}
	res.loaded[id] = cfg
	return cfg, nil
}

// prefetch loads the not yet known children concurrently. Outcomes are stored
// by identifier and consumed by the sequential walk, so errors surface at the
// same point they would without prefetching.
func (res *resolution) prefetch(ctx context.Context, ids []string) {
	pending := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || res.state[id] != unvisited {
			continue
		}
		if _, ok := res.loaded[id]; ok {
			continue
		}
		if _, ok := res.failed[id]; ok {
			continue
		}
		seen[id] = true
		pending = append(pending, id)
	}
	if len(pending) < 2 {
		return
	}

	configs := make([]*ProjectConfig, len(pending))
	errs := make([]error, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(res.r.limit)
	for i, id := range pending {
		g.Go(func() error {
			configs[i], errs[i] = res.r.fetchAndParse(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range pending {
		if errs[i] != nil {
			res.failed[id] = errs[i]
			continue
		}
		res.loaded[id] = configs[i]
	}
}

func (r *Resolver) fetchAndParse(ctx context.Context, id string) (*ProjectConfig, error) {
	data, err := r.source.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg, err := r.parser.Parse(id, data)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("fragment", id).
		Int("extends", len(cfg.Extends)).
		Msg("Fragment loaded")

	return cfg, nil
}

func (res *resolution) cycleError(closing string) error {
	start := 0
	for i, id := range res.stack {
		if id == closing {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(res.stack)-start+1)
	cycle = append(cycle, res.stack[start:]...)
	cycle = append(cycle, closing)

	return NewConfigError(fmt.Sprintf("circular inheritance detected: %s", formatCycle(cycle)), nil).
		WithCode(ErrCodeCircularInheritance).
		WithFragment(res.stack[len(res.stack)-1]).
		WithDetail("cycle", cycle)
}
