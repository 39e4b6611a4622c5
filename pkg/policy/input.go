package policy

import (
	"github.com/secretspec/secretspec/pkg/engine"
)

// Input is the document policies see as input.
type Input struct {
	Project    ProjectInput                      `json:"project"`
	Fragments  []FragmentInput                   `json:"fragments"`
	Profiles   []string                          `json:"profiles"`
	Effective  map[string]map[string]SecretInput `json:"effective"`
	Signatures []engine.SecretSignature          `json:"signatures"`
}

// ProjectInput describes the root fragment.
type ProjectInput struct {
	Name     string `json:"name"`
	Revision string `json:"revision"`
}

// FragmentInput describes one fragment of the merge order.
type FragmentInput struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Extends  []string `json:"extends"`
	Profiles []string `json:"profiles"`
}

// SecretInput is one effective definition with its provenance.
type SecretInput struct {
	Description string `json:"description"`
	Required    bool   `json:"required"`
	HasDefault  bool   `json:"has_default"`
	Mandatory   bool   `json:"mandatory"`
	Fragment    string `json:"fragment"`
	Tier        string `json:"tier"`
}

// BuildInput derives the policy input from a resolved merge order. Default
// values are reduced to a flag so policies never see them.
func BuildInput(order *engine.MergeOrder) *Input {
	in := &Input{
		Profiles:  engine.Profiles(order),
		Effective: make(map[string]map[string]SecretInput),
	}
	if root := order.Root(); root != nil {
		in.Project = ProjectInput{Name: root.Name, Revision: root.Revision}
	}

	for _, frag := range order.Fragments {
		extends := frag.Extends
		if extends == nil {
			extends = []string{}
		}
		in.Fragments = append(in.Fragments, FragmentInput{
			ID:       frag.ID,
			Name:     frag.Name,
			Extends:  extends,
			Profiles: frag.ProfileNames(),
		})
	}

	sets := engine.MergeAll(order)
	for profile, set := range sets {
		secrets := make(map[string]SecretInput, set.Len())
		for _, entry := range set.Entries() {
			def := entry.Definition
			secrets[entry.Name] = SecretInput{
				Description: def.Description,
				Required:    def.Required,
				HasDefault:  def.HasDefault(),
				Mandatory:   def.Mandatory(),
				Fragment:    entry.Source.Fragment,
				Tier:        string(entry.Source.Tier),
			}
		}
		in.Effective[profile] = secrets
	}

	in.Signatures = engine.ComputeSignatures(sets).Secrets
	return in
}
