package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"qara/internal/platform/tracing"
	dErrors "qara/pkg/domain-errors"
)

// DatasetLoader reads the rows aggregated by every query.
type DatasetLoader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Service answers dashboard queries from a cached, filter-keyed result or a
// fresh dataset.
type Service struct {
	loader  DatasetLoader
	cache   Cache
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func NewService(loader DatasetLoader, opts ...Option) *Service {
	s := &Service{loader: loader, cache: NoopCache{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Summary(ctx context.Context, f Filter) (*Summary, error) {
	return query(ctx, s, "summary", f.Key(), f, func(ds *Dataset) (*Summary, error) {
		out := SummaryOf(ds, f)
		return &out, nil
	})
}

func (s *Service) Funnel(ctx context.Context, f Filter) (*Funnel, error) {
	return query(ctx, s, "funnel", f.Key(), f, func(ds *Dataset) (*Funnel, error) {
		out := FunnelOf(ds, f)
		return &out, nil
	})
}

func (s *Service) Timeseries(ctx context.Context, f Filter, g Granularity) ([]Bucket, error) {
	return query(ctx, s, "timeseries", f.Key()+"|g="+string(g), f, func(ds *Dataset) ([]Bucket, error) {
		return TimeseriesOf(ds, f, g)
	})
}

func (s *Service) Heatmap(ctx context.Context, f Filter) ([]HeatmapRow, error) {
	return query(ctx, s, "heatmap", f.Key(), f, func(ds *Dataset) ([]HeatmapRow, error) {
		return HeatmapOf(ds, f), nil
	})
}

func (s *Service) Radar(ctx context.Context, f Filter) ([]Axis, error) {
	return query(ctx, s, "radar", f.Key(), f, func(ds *Dataset) ([]Axis, error) {
		return RadarOf(ds, f), nil
	})
}

func (s *Service) Drilldown(ctx context.Context, t DrilldownType, f Filter, q Query) (*Page, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|t=%s|p=%d|n=%d|s=%s|d=%s", f.Key(), t, q.Page, q.PageSize, q.Sort, q.Direction)
	return query(ctx, s, "drilldown", key, f, func(ds *Dataset) (*Page, error) {
		page, err := DrilldownOf(ds, t, f, q)
		if err != nil {
			return nil, err
		}
		return &page, nil
	})
}

// Invalidate drops cached aggregates after any write that changes them.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate aggregation cache", "error", err)
	}
}

func query[T any](ctx context.Context, s *Service, kind, key string, f Filter, compute func(*Dataset) (T, error)) (T, error) {
	var zero T
	if err := f.Validate(); err != nil {
		return zero, err
	}
	ctx, span := tracing.Tracer("qara/aggregation").Start(ctx, "aggregation."+kind)
	defer span.End()
	span.SetAttributes(attribute.String("aggregation.filter", f.Key()))
	start := time.Now()
	defer s.metrics.ObserveQuery(kind, start)

	cacheKey := kind + "|" + key
	var cached T
	hit, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "aggregation cache read failed", "kind", kind, "error", err)
	}
	s.metrics.IncCache(kind, hit && err == nil)
	span.SetAttributes(attribute.Bool("aggregation.cache_hit", hit && err == nil))
	if hit && err == nil {
		return cached, nil
	}

	ds, err := s.loader.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dataset load failed")
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load aggregation data")
	}
	out, err := compute(ds)
	if err != nil {
		return zero, err
	}
	if err := s.cache.Set(ctx, cacheKey, out); err != nil {
		s.logger.WarnContext(ctx, "aggregation cache write failed", "kind", kind, "error", err)
	}
	return out, nil
}
