package backend

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/secretspec/secretspec/pkg/config"
	"github.com/secretspec/secretspec/pkg/engine"
)

// Environment variables consulted by the resolver.
const (
	EnvProfile  = "SECRETSPEC_PROFILE"
	EnvProvider = "SECRETSPEC_PROVIDER"
)

// DefaultProvider is used when nothing else selects a backend.
const DefaultProvider = "keyring://"

// Source records where a resolved value came from.
type Source string

const (
	SourceOverride    Source = "override"
	SourceEnvironment Source = "environment"
	SourceUserProject Source = "user-project"
	SourceUserGlobal  Source = "user-global"
	SourceBuiltin     Source = "builtin"
)

// Sources are the inputs to provider and profile selection.
type Sources struct {
	// Project is the root project name, used for per-project user defaults.
	Project string

	// Profile and Provider are explicit overrides, e.g. from flags.
	Profile  string
	Provider string

	// User is the loaded per-user config; nil means none.
	User *config.UserConfig

	// LookupEnv reads the environment; nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// ResolutionContext is the selected profile and backend.
type ResolutionContext struct {
	Profile       string `json:"profile" yaml:"profile"`
	ProfileSource Source `json:"profile_source" yaml:"profile_source"`

	Provider       Spec   `json:"-" yaml:"-"`
	ProviderURI    string `json:"provider" yaml:"provider"`
	ProviderSource Source `json:"provider_source" yaml:"provider_source"`
}

// Resolver selects the profile and backend for a run.
type Resolver struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewResolver creates a resolver that validates URIs against registry.
func NewResolver(registry *Registry, logger zerolog.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   logger.With().Str("component", "provider-resolver").Logger(),
	}
}

// Resolve walks override, environment, per-project user default, global user
// default and built-in default. Profile and provider are chosen independently.
func (r *Resolver) Resolve(in Sources) (*ResolutionContext, error) {
	lookup := in.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	projectDefaults, globalDefaults := in.User.ForProject(in.Project)

	profile, profileSource := pick(
		candidate{in.Profile, SourceOverride},
		envCandidate(lookup, EnvProfile),
		candidate{projectDefaults.Profile, SourceUserProject},
		candidate{globalDefaults.Profile, SourceUserGlobal},
		candidate{engine.DefaultProfile, SourceBuiltin},
	)

	provider, providerSource := pick(
		candidate{in.Provider, SourceOverride},
		envCandidate(lookup, EnvProvider),
		candidate{projectDefaults.Provider, SourceUserProject},
		candidate{globalDefaults.Provider, SourceUserGlobal},
		candidate{DefaultProvider, SourceBuiltin},
	)

	spec, err := r.registry.ParseURI(provider)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("profile", profile).
		Str("profile_source", string(profileSource)).
		Str("provider", spec.String()).
		Str("provider_source", string(providerSource)).
		Msg("Resolved provider and profile")

	return &ResolutionContext{
		Profile:        profile,
		ProfileSource:  profileSource,
		Provider:       spec,
		ProviderURI:    spec.String(),
		ProviderSource: providerSource,
	}, nil
}

type candidate struct {
	value  string
	source Source
}

func envCandidate(lookup func(string) (string, bool), name string) candidate {
	v, _ := lookup(name)
	return candidate{v, SourceEnvironment}
}

// pick returns the first non-empty candidate.
func pick(candidates ...candidate) (string, Source) {
	for _, c := range candidates {
		if c.value != "" {
			return c.value, c.source
		}
	}
	return "", ""
}
