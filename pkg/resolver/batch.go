package resolver

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/observability"
)

// BatchResolver resolves every entity referenced by a batch of records with at most one
// fetch per entity type.
type BatchResolver struct {
	registry   *Registry
	resolution config.Resolution
	logger     *observability.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

// Option configures a BatchResolver.
type Option func(*BatchResolver)

// WithLogger sets the logger used for skipped and failed fetches.
func WithLogger(logger *observability.Logger) Option {
	return func(b *BatchResolver) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records fetch counts and sizes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(b *BatchResolver) {
		b.metrics = metrics
	}
}

// WithTracer sets the tracer used for resolution spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *BatchResolver) {
		b.tracer = tracer
	}
}

// NewBatchResolver creates a resolver over registry using the field mapping in resolution.
func NewBatchResolver(registry *Registry, resolution config.Resolution, opts ...Option) *BatchResolver {
	b := &BatchResolver{
		registry:   registry,
		resolution: resolution,
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry returns the registry the resolver fetches through.
func (b *BatchResolver) Registry() *Registry {
	return b.registry
}

// Collect returns the candidate identifiers per entity type for records. Identifiers are
// deduplicated and kept in first-seen order.
func (b *BatchResolver) Collect(records []*activity.Record) map[string][]string {
	candidates := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	add := func(entityType, id string) {
		ids, ok := seen[entityType]
		if !ok {
			ids = make(map[string]struct{})
			seen[entityType] = ids
		}
		if _, dup := ids[id]; dup {
			return
		}
		ids[id] = struct{}{}
		candidates[entityType] = append(candidates[entityType], id)
	}

	for _, record := range records {
		if record == nil {
			continue
		}
		for _, key := range record.ChangedKeys() {
			entityType, ok := b.resolution.ResolverFor(key)
			if !ok {
				continue
			}
			if id, ok := activity.IdentifierOf(record.Old[key]); ok {
				add(entityType, id)
			}
			if id, ok := activity.IdentifierOf(record.New[key]); ok {
				add(entityType, id)
			}
		}
		if ref := record.Causer; ref != nil && !ref.IsZero() {
			add(ref.Type, ref.ID)
		}
		if ref := record.SubjectRef(); ref != nil {
			add(ref.Type, ref.ID)
		}
	}

	return candidates
}

// Resolve fetches every entity referenced by records. Identifiers that are not found are
// absent from the table.
func (b *BatchResolver) Resolve(ctx context.Context, records []*activity.Record) (table *activity.ResolutionTable, err error) {
	ctx, span := observability.StartSpan(ctx, b.tracer, "resolver.Resolve", attribute.Int("records", len(records)))
	defer func() { observability.EndSpan(span, err) }()

	b.metrics.RecordBatch(len(records))

	candidates := b.Collect(records)
	types := make([]string, 0, len(candidates))
	for entityType := range candidates {
		types = append(types, entityType)
	}
	sort.Strings(types)

	entries := make(map[string]map[string]activity.Entity, len(types))
	for _, entityType := range types {
		found, err := b.fetch(ctx, entityType, candidates[entityType])
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			entries[entityType] = found
		}
	}

	span.SetAttributes(attribute.Int("entity_types", len(entries)))
	return activity.NewResolutionTable(entries), nil
}

func (b *BatchResolver) fetch(ctx context.Context, entityType string, ids []string) (map[string]activity.Entity, error) {
	logger := b.logger.WithFields(map[string]interface{}{
		"entity_type": entityType,
		"ids":         len(ids),
	})

	descriptor, ok := b.registry.Lookup(entityType)
	if !ok {
		logger.Debug("no descriptor registered, skipping entity type")
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	found, err := descriptor.Fetch(ctx, ids)
	b.metrics.RecordFetch(entityType, len(ids), time.Since(start), err)

	switch {
	case err == nil:
		return found, nil
	case errors.Is(err, ErrUnknownEntityType):
		logger.Debug("store does not serve entity type, skipping")
		return nil, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case isHard(err):
		return nil, err
	case descriptor.FailHard:
		return nil, &FetchError{EntityType: entityType, IDs: len(ids), Hard: true, Err: err}
	default:
		logger.WithError(err).Warn("entity fetch failed, leaving type unresolved")
		return nil, nil
	}
}

func isHard(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Hard
}
