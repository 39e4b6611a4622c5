package engine

import (
	"sort"
)

// Merge folds a merge order into the effective secret set for profile.
//
// Fragments are applied ancestors first. For each fragment its default profile
// is applied, then the requested profile when it differs and the fragment
// declares it. A later definition replaces an earlier one as a whole; fields
// are never combined.
func Merge(order *MergeOrder, profile string) *EffectiveSecretSet {
	set := &EffectiveSecretSet{
		profile: profile,
		secrets: make(map[string]EffectiveSecret),
	}
	if order == nil {
		return set
	}
	if root := order.Root(); root != nil {
		set.project = root.Name
	}

	for _, frag := range order.Fragments {
		if defs, ok := frag.Profiles[DefaultProfile]; ok {
			set.apply(frag.ID, DefaultProfile, TierDefault, defs)
		}
		if profile == DefaultProfile {
			continue
		}
		if defs, ok := frag.Profiles[profile]; ok {
			set.apply(frag.ID, profile, TierProfile, defs)
		}
	}

	return set
}

func (s *EffectiveSecretSet) apply(fragment, profile string, tier Tier, defs ProfileSecrets) {
	for name, def := range defs {
		s.secrets[name] = EffectiveSecret{
			Name:       name,
			Definition: copyDefinition(def),
			Source: Provenance{
				Fragment: fragment,
				Profile:  profile,
				Tier:     tier,
			},
		}
	}
}

func copyDefinition(def SecretDefinition) SecretDefinition {
	if def.Default != nil {
		v := *def.Default
		def.Default = &v
	}
	return def
}

// Profiles returns every profile name declared by any fragment in the order, sorted.
func Profiles(order *MergeOrder) []string {
	seen := make(map[string]bool)
	for _, frag := range order.Fragments {
		for name := range frag.Profiles {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProfile reports whether any fragment in the order declares profile.
func HasProfile(order *MergeOrder, profile string) bool {
	for _, frag := range order.Fragments {
		if _, ok := frag.Profiles[profile]; ok {
			return true
		}
	}
	return false
}

// MergeAll computes the effective set of every declared profile.
func MergeAll(order *MergeOrder) map[string]*EffectiveSecretSet {
	sets := make(map[string]*EffectiveSecretSet)
	for _, profile := range Profiles(order) {
		sets[profile] = Merge(order, profile)
	}
	return sets
}
