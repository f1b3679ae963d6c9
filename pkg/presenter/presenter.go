package presenter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/differ"
	"github.com/platinummonkey/activitylens/pkg/label"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/resolver"
)

// Presenter ties batch resolution, diffing and labelling together. It keeps no state
// between calls and is safe for concurrent use.
type Presenter struct {
	resolution config.Resolution
	registry   *resolver.Registry
	batch      *resolver.BatchResolver
	labels     *label.Resolver
	translator label.Translator
	logger     *observability.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithTranslator sets the translator used for field, event and type labels.
func WithTranslator(t label.Translator) Option {
	return func(p *Presenter) {
		p.translator = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) Option {
	return func(p *Presenter) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records presentation and fetch metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Presenter) {
		p.metrics = metrics
	}
}

// WithTracer sets the tracer used for presentation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Presenter) {
		p.tracer = tracer
	}
}

// New creates a presenter fetching entities through registry.
func New(resolution config.Resolution, registry *resolver.Registry, opts ...Option) *Presenter {
	p := &Presenter{
		resolution: resolution,
		registry:   registry,
		translator: label.NopTranslator{},
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.batch = resolver.NewBatchResolver(registry, resolution,
		resolver.WithLogger(p.logger),
		resolver.WithMetrics(p.metrics),
		resolver.WithTracer(p.tracer),
	)
	p.labels = label.NewResolver(resolution, p.translator, registry)
	return p
}

// WithTranslator returns a copy of p using t, for per-request locales.
func (p *Presenter) WithTranslator(t label.Translator) *Presenter {
	clone := *p
	clone.translator = t
	clone.labels = label.NewResolver(p.resolution, t, p.registry)
	return &clone
}

// Labels returns the label resolver used for results.
func (p *Presenter) Labels() *label.Resolver {
	return p.labels
}

// Present presents a single record.
func (p *Presenter) Present(ctx context.Context, record *activity.Record) (*Result, error) {
	if record == nil {
		return nil, fmt.Errorf("present: nil record")
	}

	ctx, span := observability.StartSpan(ctx, p.tracer, "presenter.Present", attribute.Int64("record_id", record.ID))
	results, err := p.present(ctx, []*activity.Record{record})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	p.metrics.RecordPresentation(observability.ModeSingle)
	return results[0], nil
}

// PresentBatch presents records with a single resolution pass shared by all of them.
// Results are in input order; nil records are skipped.
func (p *Presenter) PresentBatch(ctx context.Context, records []*activity.Record) ([]*Result, error) {
	ctx, span := observability.StartSpan(ctx, p.tracer, "presenter.PresentBatch", attribute.Int("records", len(records)))
	results, err := p.present(ctx, records)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	p.metrics.RecordPresentation(observability.ModeBatch)
	return results, nil
}

func (p *Presenter) present(ctx context.Context, records []*activity.Record) ([]*Result, error) {
	table, err := p.batch.Resolve(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("resolve entities: %w", err)
	}

	results := make([]*Result, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		results = append(results, p.build(record, table))
	}
	return results, nil
}

func (p *Presenter) build(record *activity.Record, table *activity.ResolutionTable) *Result {
	return &Result{
		Record:  record,
		Causer:  table.LookupRef(record.Causer),
		Subject: table.LookupRef(record.SubjectRef()),
		Changes: differ.Diff(record, table, p.resolution),
		labels:  p.labels,
	}
}

// PresentGrouped presents a page of group marker rows. Each row points at the latest
// record of its group; those records are fetched in one query and resolved together.
// An empty page is returned as is without fetching anything.
func (p *Presenter) PresentGrouped(ctx context.Context, query GroupQuery, source RecordSource, opts GroupOptions) (page *Page, err error) {
	opts = opts.withDefaults()

	ctx, span := observability.StartSpan(ctx, p.tracer, "presenter.PresentGrouped",
		attribute.Int("page", opts.Page),
		attribute.Int("per_page", opts.PerPage),
	)
	defer func() { observability.EndSpan(span, err) }()

	page, err = query.Paginate(ctx, opts.Page, opts.PerPage)
	if err != nil {
		return nil, fmt.Errorf("paginate groups: %w", err)
	}
	if page == nil {
		page = &Page{PerPage: opts.PerPage, CurrentPage: opts.Page}
	}

	ids := make([]int64, 0, page.Count())
	seen := make(map[int64]struct{}, page.Count())
	for _, row := range page.Rows {
		id, ok := markerID(row, opts.LatestIDField)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return page, nil
	}

	q := &RecordQuery{IDs: ids}
	if opts.LoadRelations != nil {
		opts.LoadRelations(q)
	}

	records, err := source.FetchRecords(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch grouped records: %w", err)
	}
	if opts.AfterFetch != nil {
		records = opts.AfterFetch(records)
	}

	results, err := p.present(ctx, records)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Result, len(results))
	for _, result := range results {
		byID[result.Record.ID] = result
	}

	for _, row := range page.Rows {
		id, ok := markerID(row, opts.LatestIDField)
		if !ok {
			continue
		}
		result, ok := byID[id]
		if !ok {
			p.logger.WithField("record_id", id).Debug("group marker points at missing record")
			continue
		}

		row.Presentation = result
		row.EncodedSubjectType = p.EncodeSubjectType(result.Record.SubjectType)
		if opts.MapRow != nil {
			row.Mapped = opts.MapRow(row, result.Record, result)
		}
	}

	p.metrics.RecordPresentation(observability.ModeGrouped)
	return page, nil
}

// EncodeSubjectType encodes typeTag with the presenter's aliases.
func (p *Presenter) EncodeSubjectType(typeTag string) string {
	return EncodeSubjectType(p.resolution, typeTag)
}

// DecodeSubjectType decodes token with the presenter's aliases.
func (p *Presenter) DecodeSubjectType(token string) (string, error) {
	return DecodeSubjectType(p.resolution, token)
}
