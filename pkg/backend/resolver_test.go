package backend

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/secretspec/secretspec/pkg/config"
	"github.com/secretspec/secretspec/pkg/engine"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestResolver_Precedence(t *testing.T) {
	r := NewResolver(testRegistry(t), zerolog.Nop())

	user := &config.UserConfig{
		Defaults: config.UserDefaults{Provider: "dotenv://.env", Profile: "development"},
		Projects: map[string]config.UserDefaults{
			"app": {Provider: "vault://localhost:8200/secret"},
		},
	}

	tests := []struct {
		name           string
		in             Sources
		profile        string
		profileSource  Source
		provider       string
		providerSource Source
	}{
		{
			name:           "builtin defaults",
			in:             Sources{Project: "app"},
			profile:        engine.DefaultProfile,
			profileSource:  SourceBuiltin,
			provider:       "keyring://",
			providerSource: SourceBuiltin,
		},
		{
			name:           "user global and project",
			in:             Sources{Project: "app", User: user},
			profile:        "development",
			profileSource:  SourceUserGlobal,
			provider:       "vault://localhost:8200/secret",
			providerSource: SourceUserProject,
		},
		{
			name:           "user global for other project",
			in:             Sources{Project: "other", User: user},
			profile:        "development",
			profileSource:  SourceUserGlobal,
			provider:       "dotenv://.env",
			providerSource: SourceUserGlobal,
		},
		{
			name: "environment beats user config",
			in: Sources{Project: "app", User: user, LookupEnv: envMap(map[string]string{
				EnvProfile:  "staging",
				EnvProvider: "keyring",
			})},
			profile:        "staging",
			profileSource:  SourceEnvironment,
			provider:       "keyring://",
			providerSource: SourceEnvironment,
		},
		{
			name: "override beats environment",
			in: Sources{Project: "app", User: user, Profile: "production", Provider: "onepassword://Prod",
				LookupEnv: envMap(map[string]string{EnvProfile: "staging", EnvProvider: "keyring"})},
			profile:        "production",
			profileSource:  SourceOverride,
			provider:       "onepassword://Prod",
			providerSource: SourceOverride,
		},
		{
			name: "components resolve independently",
			in: Sources{Project: "app", Profile: "production",
				LookupEnv: envMap(map[string]string{EnvProvider: "dotenv:.env.prod"})},
			profile:        "production",
			profileSource:  SourceOverride,
			provider:       "dotenv://.env.prod",
			providerSource: SourceEnvironment,
		},
		{
			name: "empty environment value is ignored",
			in: Sources{Project: "app",
				LookupEnv: envMap(map[string]string{EnvProfile: ""})},
			profile:        engine.DefaultProfile,
			profileSource:  SourceBuiltin,
			provider:       "keyring://",
			providerSource: SourceBuiltin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.in.LookupEnv == nil {
				tt.in.LookupEnv = envMap(nil)
			}
			rc, err := r.Resolve(tt.in)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if rc.Profile != tt.profile || rc.ProfileSource != tt.profileSource {
				t.Errorf("Expected profile %s from %s, got %s from %s",
					tt.profile, tt.profileSource, rc.Profile, rc.ProfileSource)
			}
			if rc.ProviderURI != tt.provider || rc.ProviderSource != tt.providerSource {
				t.Errorf("Expected provider %s from %s, got %s from %s",
					tt.provider, tt.providerSource, rc.ProviderURI, rc.ProviderSource)
			}
		})
	}
}

func TestResolver_InvalidProvider(t *testing.T) {
	r := NewResolver(testRegistry(t), zerolog.Nop())

	_, err := r.Resolve(Sources{Project: "app", Provider: "s3://bucket", LookupEnv: envMap(nil)})
	if !errors.Is(err, engine.ErrInvalidBackendURI) {
		t.Errorf("Expected ErrInvalidBackendURI, got: %v", err)
	}
}
