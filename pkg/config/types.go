package config

import (
	"github.com/secretspec/secretspec/pkg/engine"
)

// document mirrors the on-disk layout of secretspec.toml.
type document struct {
	// Project holds the [project] table.
	Project projectSection `toml:"project" json:"project"`

	// Profiles maps profile names to secret tables.
	Profiles map[string]map[string]secretEntry `toml:"profiles,omitempty" json:"profiles,omitempty"`
}

// projectSection is the [project] table.
type projectSection struct {
	// Name is the project name, also used to namespace stored values.
	Name string `toml:"name" json:"name" validate:"required"`

	// Revision is the schema revision (currently "1.0").
	Revision string `toml:"revision" json:"revision" validate:"required"`

	// Extends lists parent fragments relative to this file.
	Extends []string `toml:"extends,omitempty" json:"extends,omitempty" validate:"dive,required"`
}

// secretEntry is one secret declaration inside a profile table.
type secretEntry struct {
	// Description is shown to humans when prompting or reporting.
	Description string `toml:"description,omitempty" json:"description,omitempty"`

	// Required defaults to true when omitted.
	Required *bool `toml:"required,omitempty" json:"required,omitempty"`

	// Default is used when no value is stored.
	Default *string `toml:"default,omitempty" json:"default,omitempty"`
}

// toProjectConfig converts a validated document into the engine representation.
func (d *document) toProjectConfig(id string) *engine.ProjectConfig {
	cfg := &engine.ProjectConfig{
		ID:       id,
		Name:     d.Project.Name,
		Revision: d.Project.Revision,
		Extends:  append([]string(nil), d.Project.Extends...),
		Profiles: make(map[string]engine.ProfileSecrets, len(d.Profiles)),
	}

	for profile, secrets := range d.Profiles {
		defs := make(engine.ProfileSecrets, len(secrets))
		for name, entry := range secrets {
			required := true
			if entry.Required != nil {
				required = *entry.Required
			}
			def := engine.SecretDefinition{
				Description: entry.Description,
				Required:    required,
			}
			if entry.Default != nil {
				v := *entry.Default
				def.Default = &v
			}
			defs[name] = def
		}
		cfg.Profiles[profile] = defs
	}

	return cfg
}

// fromProjectConfig builds the on-disk layout of a fragment.
func fromProjectConfig(cfg *engine.ProjectConfig) *document {
	doc := &document{
		Project: projectSection{
			Name:     cfg.Name,
			Revision: cfg.Revision,
			Extends:  cfg.Extends,
		},
		Profiles: make(map[string]map[string]secretEntry, len(cfg.Profiles)),
	}
	if doc.Project.Revision == "" {
		doc.Project.Revision = engine.SupportedRevision
	}

	for profile, defs := range cfg.Profiles {
		secrets := make(map[string]secretEntry, len(defs))
		for name, def := range defs {
			required := def.Required
			secrets[name] = secretEntry{
				Description: def.Description,
				Required:    &required,
				Default:     def.Default,
			}
		}
		doc.Profiles[profile] = secrets
	}

	return doc
}
