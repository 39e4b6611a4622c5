package secrets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secretspec/secretspec/pkg/backend"
	"github.com/secretspec/secretspec/pkg/backend/builtin"
	"github.com/secretspec/secretspec/pkg/config"
	"github.com/secretspec/secretspec/pkg/engine"
	"github.com/secretspec/secretspec/pkg/telemetry"
)

// Options configures Load. The zero value loads ./secretspec.toml with the
// user's config file and the built-in backends.
type Options struct {
	// Path is a project directory or a secretspec.toml file. Defaults to ".".
	Path string

	// Profile and Provider override every other source when set.
	Profile  string
	Provider string

	// User is the per-user configuration. When nil it is read from
	// UserConfigPath, or from the default location if that is empty too.
	User           *config.UserConfig
	UserConfigPath string

	// Registry holds the available backends. Defaults to the built-in set.
	Registry *backend.Registry

	// Source fetches fragments. Defaults to the local filesystem.
	Source engine.FragmentSource

	// Prefetch fetches sibling parents concurrently.
	Prefetch bool

	// LookupEnv reads the environment; nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Telemetry receives logs, spans and metrics. Defaults to a no-op set.
	Telemetry *telemetry.Telemetry
}

// Secrets is a loaded project: its resolved inheritance graph plus the
// selected profile and backend.
type Secrets struct {
	opts      Options
	tel       *telemetry.Telemetry
	logger    zerolog.Logger
	registry  *backend.Registry
	resolver  *engine.Resolver
	providers *backend.Resolver
	user      *config.UserConfig

	order   *engine.MergeOrder
	context *backend.ResolutionContext
}

// Load reads the project at opts.Path, resolves its extends graph and selects
// the profile and backend.
func Load(ctx context.Context, opts Options) (*Secrets, error) {
	if opts.Path == "" {
		opts.Path = "."
	}
	if opts.Registry == nil {
		opts.Registry = builtin.NewRegistry()
	}
	if opts.Source == nil {
		opts.Source = engine.NewFileSource()
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.FromTelemetryContext(ctx)
	}
	if tel == nil {
		tel = telemetry.NewNop()
	}

	user, err := loadUser(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger := tel.Logger.NewComponentLogger("secrets").Zerolog()
	s := &Secrets{
		opts:     opts,
		tel:      tel,
		logger:   logger,
		registry: opts.Registry,
		resolver: engine.NewResolver(
			&instrumentedSource{FragmentSource: opts.Source, tel: tel},
			config.NewParser(),
			engine.WithResolverLogger(logger),
			engine.WithPrefetch(opts.Prefetch),
		),
		providers: backend.NewResolver(opts.Registry, logger),
		user:      user,
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func loadUser(ctx context.Context, opts Options) (*config.UserConfig, error) {
	if opts.User != nil {
		return opts.User, nil
	}
	path := opts.UserConfigPath
	if path == "" {
		p, err := config.DefaultUserConfigPath()
		if err != nil {
			// No home directory: behave as if no user config exists.
			return &config.UserConfig{}, nil
		}
		path = p
	}
	return config.LoadUserConfig(ctx, path)
}

// Reload re-reads every fragment and reselects the profile and backend.
// On failure the previous state is kept.
func (s *Secrets) Reload(ctx context.Context) (err error) {
	runID := uuid.New().String()
	ctx = s.tel.WithContext(ctx)
	ctx = telemetry.WithResolutionContext(ctx, runID, "", s.opts.Profile)

	var order *engine.MergeOrder
	defer func() {
		fragments := 0
		if order != nil {
			fragments = len(order.Fragments)
		}
		if err != nil {
			s.tel.Metrics.RecordError(string(engine.ClassOf(err)), engine.CodeOf(err))
		}
		telemetry.EndResolutionContext(ctx, fragments, err)
	}()

	order, err = s.resolver.ResolveRoot(ctx, s.opts.Path)
	if err != nil {
		return err
	}

	rc, err := s.providers.Resolve(backend.Sources{
		Project:   order.Root().Name,
		Profile:   s.opts.Profile,
		Provider:  s.opts.Provider,
		User:      s.user,
		LookupEnv: s.opts.LookupEnv,
	})
	if err != nil {
		return err
	}

	if rc.Profile != engine.DefaultProfile && !engine.HasProfile(order, rc.Profile) {
		return engine.NewResolutionError(
			fmt.Sprintf("profile %q is not declared by %s or its parents", rc.Profile, order.Root().Name), nil).
			WithCode(engine.ErrCodeProfileNotFound).
			WithDetail("profile", rc.Profile).
			WithDetail("available", engine.Profiles(order))
	}

	s.order = order
	s.context = rc

	telemetry.FromContext(ctx).
		WithBackend(rc.Provider.Scheme, rc.ProviderURI).
		Debugf("Loaded %d fragments", len(order.Fragments))
	return nil
}

// Project returns the root fragment.
func (s *Secrets) Project() *engine.ProjectConfig {
	return s.order.Root()
}

// Order returns the resolved merge order.
func (s *Secrets) Order() *engine.MergeOrder {
	return s.order
}

// Files returns the identifiers of every loaded fragment. With the default
// source these are file paths.
func (s *Secrets) Files() []string {
	return s.order.IDs()
}

// Context returns the selected profile and backend with their sources.
func (s *Secrets) Context() *backend.ResolutionContext {
	return s.context
}

// Profiles lists every profile declared in the graph.
func (s *Secrets) Profiles() []string {
	return engine.Profiles(s.order)
}

// Effective returns the merged secret set of the selected profile.
func (s *Secrets) Effective() *engine.EffectiveSecretSet {
	return engine.Merge(s.order, s.context.Profile)
}

// Signatures computes per-profile and union signatures over every declared
// profile.
func (s *Secrets) Signatures() *engine.SignatureSet {
	return engine.ComputeSignatures(engine.MergeAll(s.order))
}

// Registry returns the backend registry in use.
func (s *Secrets) Registry() *backend.Registry {
	return s.registry
}

func (s *Secrets) openBackend() (backend.Backend, error) {
	return s.registry.OpenSpec(s.context.Provider)
}

// lookup adapts a backend to engine.Lookup for the selected project and profile.
func (s *Secrets) lookup(b backend.Backend) engine.Lookup {
	project := s.Project().Name
	profile := s.context.Profile
	return func(ctx context.Context, name string) (string, bool, error) {
		var (
			value string
			found bool
		)
		err := telemetry.RecordBackendOperation(ctx, b.Name(), "get", func(ctx context.Context) error {
			var err error
			value, found, err = b.Get(ctx, project, profile, name)
			return err
		})
		return value, found, err
	}
}
