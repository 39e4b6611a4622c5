package engine

import (
	"context"
	"fmt"
	"strings"
)

// Status classifies one secret during validation.
type Status string

const (
	// StatusSatisfied means the backend returned a value.
	StatusSatisfied Status = "satisfied"

	// StatusDefaulted means no value was stored and the declared default is used.
	StatusDefaulted Status = "defaulted"

	// StatusMissing means a required secret has neither a stored value nor a default.
	StatusMissing Status = "missing"

	// StatusUnset means an optional secret has neither a stored value nor a default.
	StatusUnset Status = "unset"
)

// SecretStatus is the validation outcome of one secret.
type SecretStatus struct {
	Name        string `json:"name" yaml:"name"`
	Status      Status `json:"status" yaml:"status"`
	Required    bool   `json:"required" yaml:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Value is the stored or default value. It is never serialized.
	Value string `json:"-" yaml:"-"`
}

// Report is the outcome of validating an effective set against a value store.
type Report struct {
	Project string         `json:"project" yaml:"project"`
	Profile string         `json:"profile" yaml:"profile"`
	Secrets []SecretStatus `json:"secrets" yaml:"secrets"`
}

// Validate classifies every secret of set using lookup. It has no side effects;
// a lookup error aborts validation.
func Validate(ctx context.Context, set *EffectiveSecretSet, lookup Lookup) (*Report, error) {
	report := &Report{
		Project: set.Project(),
		Profile: set.Profile(),
		Secrets: make([]SecretStatus, 0, set.Len()),
	}

	for _, entry := range set.Entries() {
		def := entry.Definition
		value, found, err := lookup(ctx, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", entry.Name, err)
		}

		st := SecretStatus{
			Name:        entry.Name,
			Required:    def.Required,
			Description: def.Description,
		}
		switch {
		case found:
			st.Status = StatusSatisfied
			st.Value = value
		case def.Default != nil:
			st.Status = StatusDefaulted
			st.Value = *def.Default
		case def.Required:
			st.Status = StatusMissing
		default:
			st.Status = StatusUnset
		}
		report.Secrets = append(report.Secrets, st)
	}

	return report, nil
}

// Valid reports whether no required secret is missing.
func (r *Report) Valid() bool {
	return len(r.MissingRequired()) == 0
}

// MissingRequired lists the names with StatusMissing.
func (r *Report) MissingRequired() []string {
	return r.names(StatusMissing)
}

// MissingOptional lists the names with StatusUnset.
func (r *Report) MissingOptional() []string {
	return r.names(StatusUnset)
}

// WithDefaults lists the names with StatusDefaulted.
func (r *Report) WithDefaults() []string {
	return r.names(StatusDefaulted)
}

// Status returns the outcome of one secret.
func (r *Report) Status(name string) (SecretStatus, bool) {
	for _, st := range r.Secrets {
		if st.Name == name {
			return st, true
		}
	}
	return SecretStatus{}, false
}

// Values returns the resolved values of satisfied and defaulted secrets.
func (r *Report) Values() map[string]string {
	out := make(map[string]string)
	for _, st := range r.Secrets {
		if st.Status == StatusSatisfied || st.Status == StatusDefaulted {
			out[st.Name] = st.Value
		}
	}
	return out
}

// Err returns a MISSING_REQUIRED_SECRET error when the report is not valid.
func (r *Report) Err() error {
	missing := r.MissingRequired()
	if len(missing) == 0 {
		return nil
	}
	return NewValidationError(
		fmt.Sprintf("missing required secrets for profile %s: %s", r.Profile, strings.Join(missing, ", ")),
		nil,
	).WithCode(ErrCodeMissingRequiredSecret).WithDetail("missing", missing)
}

func (r *Report) names(status Status) []string {
	var out []string
	for _, st := range r.Secrets {
		if st.Status == status {
			out = append(out, st.Name)
		}
	}
	return out
}
