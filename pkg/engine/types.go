package engine

import (
	"sort"
)

const (
	// DefaultProfile is the profile every fragment may declare and every lookup falls back to.
	DefaultProfile = "default"

	// SupportedRevision is the only accepted value of project.revision.
	SupportedRevision = "1.0"

	// SpecFileName is the file name a directory reference resolves to.
	SpecFileName = "secretspec.toml"
)

// SecretDefinition declares one secret within one profile of one fragment.
type SecretDefinition struct {
	// Description is free text shown to humans.
	Description string `json:"description" toml:"description" yaml:"description"`

	// Required marks the secret as needed for the profile to be usable.
	Required bool `json:"required" toml:"required" yaml:"required"`

	// Default is used when no value is stored. Nil means no default.
	Default *string `json:"default,omitempty" toml:"default,omitempty" yaml:"default,omitempty"`
}

// HasDefault reports whether a default value is declared.
func (d SecretDefinition) HasDefault() bool {
	return d.Default != nil
}

// Mandatory reports whether a value must be supplied by the backend.
func (d SecretDefinition) Mandatory() bool {
	return d.Required && d.Default == nil
}

// ProfileSecrets maps secret names to their definitions within one profile.
type ProfileSecrets map[string]SecretDefinition

// Names returns the secret names in sorted order.
func (p ProfileSecrets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProjectConfig is one parsed specification fragment. It is immutable after parsing.
type ProjectConfig struct {
	// ID is the canonical identifier the fragment was fetched under.
	ID string `json:"id"`

	// Name is the project name.
	Name string `json:"name"`

	// Revision is the schema revision, always SupportedRevision after parsing.
	Revision string `json:"revision"`

	// Extends lists parent fragment references in declaration order.
	Extends []string `json:"extends,omitempty"`

	// Profiles maps profile names to their secret declarations.
	Profiles map[string]ProfileSecrets `json:"profiles"`
}

// Profile returns the declarations of one profile.
func (c *ProjectConfig) Profile(name string) (ProfileSecrets, bool) {
	p, ok := c.Profiles[name]
	return p, ok
}

// ProfileNames returns the declared profile names in sorted order.
func (c *ProjectConfig) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tier identifies which profile section of a fragment supplied a definition.
type Tier string

const (
	// TierDefault means the definition came from the fragment's default profile.
	TierDefault Tier = "default"

	// TierProfile means the definition came from the requested profile.
	TierProfile Tier = "profile"
)

// Provenance records where an effective definition came from.
type Provenance struct {
	Fragment string `json:"fragment"`
	Profile  string `json:"profile"`
	Tier     Tier   `json:"tier"`
}

// EffectiveSecret is one entry of an EffectiveSecretSet.
type EffectiveSecret struct {
	Name       string           `json:"name"`
	Definition SecretDefinition `json:"definition"`
	Source     Provenance       `json:"source"`
}

// EffectiveSecretSet is the merged view of all fragments for one profile.
// It is never mutated after Merge returns; accessors hand out copies.
type EffectiveSecretSet struct {
	project string
	profile string
	secrets map[string]EffectiveSecret
}

// Project returns the name of the root project.
func (s *EffectiveSecretSet) Project() string {
	return s.project
}

// Profile returns the profile the set was computed for.
func (s *EffectiveSecretSet) Profile() string {
	return s.profile
}

// Get returns the effective definition of a secret.
func (s *EffectiveSecretSet) Get(name string) (SecretDefinition, bool) {
	e, ok := s.secrets[name]
	return copyDefinition(e.Definition), ok
}

// Source returns the provenance of a secret's effective definition.
func (s *EffectiveSecretSet) Source(name string) (Provenance, bool) {
	e, ok := s.secrets[name]
	return e.Source, ok
}

// Len returns the number of secrets in the set.
func (s *EffectiveSecretSet) Len() int {
	return len(s.secrets)
}

// Names returns the secret names in sorted order.
func (s *EffectiveSecretSet) Names() []string {
	names := make([]string, 0, len(s.secrets))
	for name := range s.secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all secrets sorted by name.
func (s *EffectiveSecretSet) Entries() []EffectiveSecret {
	out := make([]EffectiveSecret, 0, len(s.secrets))
	for _, name := range s.Names() {
		e := s.secrets[name]
		e.Definition = copyDefinition(e.Definition)
		out = append(out, e)
	}
	return out
}

// Definitions returns a copy of the name to definition mapping.
func (s *EffectiveSecretSet) Definitions() ProfileSecrets {
	out := make(ProfileSecrets, len(s.secrets))
	for name, e := range s.secrets {
		out[name] = copyDefinition(e.Definition)
	}
	return out
}
