package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/secretspec/secretspec/pkg/backend"
	"github.com/secretspec/secretspec/pkg/config"
	"github.com/secretspec/secretspec/pkg/engine"
)

// enumerator is implemented by backends that can list every stored key,
// such as dotenv files.
type enumerator interface {
	All() (map[string]string, error)
}

// InitOptions configures Init.
type InitOptions struct {
	// Dir is the project directory. Defaults to ".".
	Dir string

	// Name is the project name. Defaults to the directory's base name.
	Name string

	// From names a backend whose keys become secret declarations. A bare
	// path is read as a dotenv file.
	From string

	// Force overwrites an existing secretspec.toml.
	Force bool

	// Registry resolves From. Required when From is set.
	Registry *backend.Registry
}

// Init writes a new secretspec.toml. Only secret names are copied from the
// source; values stay where they are.
func Init(opts InitOptions) (*engine.ProjectConfig, string, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	path := filepath.Join(abs, engine.SpecFileName)

	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return nil, "", fmt.Errorf("%s already exists", path)
		}
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(abs)
	}

	defaults := engine.ProfileSecrets{}
	if opts.From != "" {
		keys, err := readKeys(opts.Registry, opts.From)
		if err != nil {
			return nil, "", err
		}
		for key := range keys {
			defaults[key] = engine.SecretDefinition{
				Description: strings.ReplaceAll(strings.ToLower(key), "_", " "),
				Required:    true,
			}
		}
	}

	cfg := &engine.ProjectConfig{
		ID:       path,
		Name:     name,
		Revision: engine.SupportedRevision,
		Profiles: map[string]engine.ProfileSecrets{
			engine.DefaultProfile: defaults,
		},
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return nil, "", err
	}
	// Round-trip through the parser so a bad key from the source is rejected
	// before anything is written.
	if _, err := config.NewParser().Parse(path, data); err != nil {
		return nil, "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return cfg, path, nil
}

func readKeys(registry *backend.Registry, from string) (map[string]string, error) {
	if registry == nil {
		return nil, fmt.Errorf("no backend registry")
	}
	if !strings.Contains(from, ":") {
		from = "dotenv://" + from
	}

	b, err := registry.Open(from)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	enum, ok := b.(enumerator)
	if !ok {
		return nil, engine.NewResolutionError(
			fmt.Sprintf("backend %s cannot list its keys", b.Name()), nil).
			WithCode(engine.ErrCodeInvalidBackendURI).
			WithDetail("uri", from)
	}
	return enum.All()
}
