package engine

import (
	"sort"
	"strings"
)

// Presence is the type-level classification of a secret.
type Presence string

const (
	// Mandatory means a value is always present once validation passes.
	Mandatory Presence = "mandatory"

	// Optional means the value may be absent.
	Optional Presence = "optional"
)

// ProfileSignature is the exact classification of a secret in one profile.
type ProfileSignature struct {
	Presence Presence `json:"presence" yaml:"presence"`

	// Absent is set when the profile's effective set does not contain the secret.
	Absent bool `json:"absent,omitempty" yaml:"absent,omitempty"`
}

// SecretSignature describes one secret across all computed profiles.
type SecretSignature struct {
	// Name is the declared secret name.
	Name string `json:"name" yaml:"name"`

	// Identifier is the lowercase form used for generated field names.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Description is taken from the first profile, in sorted order, that declares the secret.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Profiles holds the exact signature per profile.
	Profiles map[string]ProfileSignature `json:"profiles" yaml:"profiles"`

	// Union is the classification valid regardless of the active profile.
	Union Presence `json:"union" yaml:"union"`
}

// SignatureSet is the output of ComputeSignatures, sorted by secret name.
type SignatureSet struct {
	Profiles []string          `json:"profiles" yaml:"profiles"`
	Secrets  []SecretSignature `json:"secrets" yaml:"secrets"`
}

// Get returns the signature of a secret.
func (s *SignatureSet) Get(name string) (SecretSignature, bool) {
	i := sort.Search(len(s.Secrets), func(i int) bool { return s.Secrets[i].Name >= name })
	if i < len(s.Secrets) && s.Secrets[i].Name == name {
		return s.Secrets[i], true
	}
	return SecretSignature{}, false
}

// ComputeSignatures derives per-profile and union signatures from the
// effective sets of every profile. It performs no I/O.
//
// A secret is Mandatory in a profile when it is required and has no default.
// Its union is Mandatory only if it is Mandatory in every profile; being
// Optional in, or missing from, any profile makes the union Optional.
func ComputeSignatures(sets map[string]*EffectiveSecretSet) *SignatureSet {
	profiles := make([]string, 0, len(sets))
	for p := range sets {
		profiles = append(profiles, p)
	}
	sort.Strings(profiles)

	byName := make(map[string]*SecretSignature)
	for _, profile := range profiles {
		for _, entry := range sets[profile].Entries() {
			sig, ok := byName[entry.Name]
			if !ok {
				sig = &SecretSignature{
					Name:        entry.Name,
					Identifier:  Identifier(entry.Name),
					Description: entry.Definition.Description,
					Profiles:    make(map[string]ProfileSignature, len(profiles)),
				}
				byName[entry.Name] = sig
			}
			presence := Optional
			if entry.Definition.Mandatory() {
				presence = Mandatory
			}
			sig.Profiles[profile] = ProfileSignature{Presence: presence}
		}
	}

	out := &SignatureSet{
		Profiles: profiles,
		Secrets:  make([]SecretSignature, 0, len(byName)),
	}
	for _, sig := range byName {
		union := Mandatory
		for _, profile := range profiles {
			ps, ok := sig.Profiles[profile]
			if !ok {
				ps = ProfileSignature{Presence: Optional, Absent: true}
				sig.Profiles[profile] = ps
			}
			if ps.Presence == Optional {
				union = Optional
			}
		}
		sig.Union = union
		out.Secrets = append(out.Secrets, *sig)
	}
	sort.Slice(out.Secrets, func(i, j int) bool {
		return out.Secrets[i].Name < out.Secrets[j].Name
	})
	return out
}

// Identifier returns the lowercase identifier derived from a secret name.
func Identifier(name string) string {
	return strings.ToLower(name)
}
