package secrets

import (
	"context"
	"errors"

	"github.com/secretspec/secretspec/pkg/engine"
	"github.com/secretspec/secretspec/pkg/telemetry"
)

// instrumentedSource adds a span and a fetch counter to every fragment fetch.
type instrumentedSource struct {
	engine.FragmentSource
	tel *telemetry.Telemetry
}

func (s *instrumentedSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	ctx, span := s.tel.Tracer.StartFragmentSpan(ctx, id)
	defer span.End()

	data, err := s.FragmentSource.Fetch(ctx, id)
	switch {
	case err == nil:
		s.tel.Metrics.RecordFragmentFetch("ok")
		telemetry.RecordSuccess(span)
	case errors.Is(err, engine.ErrFragmentNotFound):
		s.tel.Metrics.RecordFragmentFetch("not_found")
		telemetry.RecordError(span, err)
	default:
		s.tel.Metrics.RecordFragmentFetch("error")
		telemetry.RecordError(span, err)
	}
	return data, err
}
