package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/secretspec/secretspec/pkg/engine"
)

// UserConfigFileName is the per-user config file name.
const UserConfigFileName = "config.toml"

// UserDefaults names a default backend and profile.
type UserDefaults struct {
	// Provider is a backend URI or shorthand such as "keyring".
	Provider string `toml:"provider,omitempty" json:"provider,omitempty"`

	// Profile is the profile selected when none is given.
	Profile string `toml:"profile,omitempty" json:"profile,omitempty"`
}

// UserConfig is the per-user configuration file.
type UserConfig struct {
	// Defaults apply to every project.
	Defaults UserDefaults `toml:"defaults,omitempty" json:"defaults,omitempty"`

	// Projects holds per-project overrides keyed by project name.
	Projects map[string]UserDefaults `toml:"projects,omitempty" json:"projects,omitempty"`
}

// ForProject returns the per-project and global defaults for project. A nil
// config has neither.
func (c *UserConfig) ForProject(project string) (projectDefaults, globalDefaults UserDefaults) {
	if c == nil {
		return UserDefaults{}, UserDefaults{}
	}
	return c.Projects[project], c.Defaults
}

// SetProjectDefaults records defaults for one project.
func (c *UserConfig) SetProjectDefaults(project string, d UserDefaults) {
	if c.Projects == nil {
		c.Projects = make(map[string]UserDefaults)
	}
	c.Projects[project] = d
}

// DefaultUserConfigPath returns <user config dir>/secretspec/config.toml.
func DefaultUserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(dir, "secretspec", UserConfigFileName), nil
}

// LoadUserConfig reads the user config at path. A missing file yields an
// empty config.
func LoadUserConfig(ctx context.Context, path string) (*UserConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UserConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read user config %s: %w", path, err)
	}

	var cfg UserConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, decodeError(path, data, err)
	}

	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, decodeError(path, data, err)
	}
	if err := NewSchemaRegistry().ValidateUserConfig(ctx, raw); err != nil {
		return nil, engine.NewConfigError("invalid user config", err).
			WithCode(engine.ErrCodeParse).
			WithFragment(path)
	}

	return &cfg, nil
}

// SaveUserConfig writes cfg to path, creating the parent directory.
// The file is only readable by the current user.
func SaveUserConfig(path string, cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write user config %s: %w", path, err)
	}
	return nil
}
