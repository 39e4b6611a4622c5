package secrets

import (
	"context"
	"fmt"

	"github.com/secretspec/secretspec/pkg/backend"
	"github.com/secretspec/secretspec/pkg/engine"
	"github.com/secretspec/secretspec/pkg/telemetry"
)

// CheckResult is the outcome of Check.
type CheckResult struct {
	Context *backend.ResolutionContext `json:"context" yaml:"context"`
	Report  *engine.Report             `json:"report" yaml:"report"`
}

// Check classifies every secret of the selected profile against the selected
// backend. A missing required secret is reported, not returned as an error;
// use Report.Err for that.
func (s *Secrets) Check(ctx context.Context) (result *CheckResult, err error) {
	ctx = s.tel.WithContext(ctx)
	op := telemetry.StartOperation(ctx, "secretspec.check",
		telemetry.AttrProject.String(s.Project().Name),
		telemetry.AttrProfile.String(s.context.Profile),
	)
	defer func() { op.End(err) }()

	b, err := s.openBackend()
	if err != nil {
		return nil, err
	}
	defer b.Close()

	report, err := engine.Validate(op.Ctx, s.Effective(), s.lookup(b))
	if err != nil {
		s.tel.Metrics.RecordError(string(engine.ClassOf(err)), engine.CodeOf(err))
		return nil, err
	}

	counts := make(map[engine.Status]int)
	for _, st := range report.Secrets {
		counts[st.Status]++
	}
	for status, n := range counts {
		s.tel.Metrics.RecordSecretStatus(string(status), n)
	}

	lg := op.Logger.Zerolog()
	lg.Debug().
		Int("secrets", len(report.Secrets)).
		Int("missing", counts[engine.StatusMissing]).
		Msg("Check complete")

	return &CheckResult{Context: s.context, Report: report}, nil
}

// Get returns the value of a declared secret, falling back to its default.
func (s *Secrets) Get(ctx context.Context, name string) (string, error) {
	ctx = s.tel.WithContext(ctx)

	def, err := s.declared(name)
	if err != nil {
		return "", err
	}

	b, err := s.openBackend()
	if err != nil {
		return "", err
	}
	defer b.Close()

	value, found, err := s.lookup(b)(ctx, name)
	if err != nil {
		return "", err
	}
	if found {
		return value, nil
	}
	if def.Default != nil {
		return *def.Default, nil
	}
	return "", engine.NewResolutionError(
		fmt.Sprintf("no value stored for %s in profile %s", name, s.context.Profile), nil).
		WithCode(engine.ErrCodeSecretNotFound).
		WithDetail("secret", name)
}

// Set stores a value for a declared secret in the selected backend.
func (s *Secrets) Set(ctx context.Context, name, value string) error {
	ctx = s.tel.WithContext(ctx)

	if _, err := s.declared(name); err != nil {
		return err
	}

	b, err := s.openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	if !b.AllowsWrite() {
		return backend.WriteNotSupported(b.Name())
	}

	project, profile := s.Project().Name, s.context.Profile
	return telemetry.RecordBackendOperation(ctx, b.Name(), "set", func(ctx context.Context) error {
		return b.Set(ctx, project, profile, name, value)
	})
}

// ImportResult lists what Import did per secret.
type ImportResult struct {
	Imported []string `json:"imported" yaml:"imported"`

	// Skipped secrets already had a value in the target backend.
	Skipped []string `json:"skipped" yaml:"skipped"`

	// NotFound secrets had no value in the source backend.
	NotFound []string `json:"not_found" yaml:"not_found"`
}

// Import copies values of the selected profile's secrets from the backend at
// from into the selected backend. Existing values are never overwritten.
func (s *Secrets) Import(ctx context.Context, from string) (*ImportResult, error) {
	ctx = s.tel.WithContext(ctx)

	src, err := s.registry.Open(from)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := s.openBackend()
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	if !dst.AllowsWrite() {
		return nil, backend.WriteNotSupported(dst.Name())
	}

	project, profile := s.Project().Name, s.context.Profile
	readSrc := s.lookup(src)
	readDst := s.lookup(dst)

	result := &ImportResult{}
	for _, name := range s.Effective().Names() {
		_, exists, err := readDst(ctx, name)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		value, found, err := readSrc(ctx, name)
		if err != nil {
			return result, err
		}
		if !found {
			result.NotFound = append(result.NotFound, name)
			continue
		}

		err = telemetry.RecordBackendOperation(ctx, dst.Name(), "set", func(ctx context.Context) error {
			return dst.Set(ctx, project, profile, name, value)
		})
		if err != nil {
			return result, err
		}
		result.Imported = append(result.Imported, name)
	}

	s.logger.Info().
		Str("from", src.Name()).
		Str("to", dst.Name()).
		Int("imported", len(result.Imported)).
		Msg("Import complete")

	return result, nil
}

// declared returns the effective definition of name or SECRET_NOT_FOUND.
func (s *Secrets) declared(name string) (engine.SecretDefinition, error) {
	def, ok := s.Effective().Get(name)
	if !ok {
		return def, engine.NewResolutionError(
			fmt.Sprintf("secret %s is not declared in profile %s", name, s.context.Profile), nil).
			WithCode(engine.ErrCodeSecretNotFound).
			WithDetail("secret", name)
	}
	return def, nil
}
