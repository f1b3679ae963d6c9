package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/resolver"
)

// EntityStore fetches entities from one table per type tag.
type EntityStore struct {
	db      *sql.DB
	dialect Dialect
	tables  map[string]config.EntityTable
	metrics *observability.Metrics
}

// EntityStoreOption configures an EntityStore.
type EntityStoreOption func(*EntityStore)

// WithEntityMetrics records one storage operation per fetch query.
func WithEntityMetrics(m *observability.Metrics) EntityStoreOption {
	return func(s *EntityStore) {
		s.metrics = m
	}
}

// NewEntityStore validates the table specs and creates a store over them.
func NewEntityStore(db *sql.DB, dialect Dialect, tables map[string]config.EntityTable, opts ...EntityStoreOption) (*EntityStore, error) {
	copied := make(map[string]config.EntityTable, len(tables))
	for entityType, t := range tables {
		if t.KeyColumn == "" {
			t.KeyColumn = "id"
		}
		if err := checkIdentifier(t.Table); err != nil {
			return nil, fmt.Errorf("entity %s: %w", entityType, err)
		}
		if err := checkIdentifier(t.KeyColumn); err != nil {
			return nil, fmt.Errorf("entity %s: %w", entityType, err)
		}
		copied[entityType] = t
	}

	s := &EntityStore{db: db, dialect: dialect, tables: copied}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Types returns the configured type tags, sorted.
func (s *EntityStore) Types() []string {
	types := make([]string, 0, len(s.tables))
	for t := range s.tables {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// FetchWrapper decorates the fetch function of one entity type, e.g. with a cache.
type FetchWrapper func(entityType string, fetch resolver.FetchFunc) resolver.FetchFunc

// Register adds a descriptor for every configured type to registry. wrap may be nil.
func (s *EntityStore) Register(registry *resolver.Registry, wrap FetchWrapper) error {
	for _, entityType := range s.Types() {
		t := s.tables[entityType]
		fetch := resolver.StoreFetch(s, entityType)
		if wrap != nil {
			fetch = wrap(entityType, fetch)
		}
		err := registry.Register(entityType, resolver.Descriptor{
			Fetch:      fetch,
			LabelField: t.LabelField,
			FailHard:   t.FailHard,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// FetchByIDs implements activity.EntityStore with one query for all ids.
func (s *EntityStore) FetchByIDs(ctx context.Context, entityType string, ids []string) (result map[string]activity.Entity, err error) {
	t, ok := s.tables[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resolver.ErrUnknownEntityType, entityType)
	}
	if len(ids) == 0 {
		return map[string]activity.Entity{}, nil
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordStorageOperation("fetch_entities", time.Since(start), err)
	}()

	qb := newQueryBuilder(s.dialect)
	qb.inText(t.KeyColumn, ids)
	query := "SELECT * FROM " + t.Table + qb.whereClause()

	rows, err := s.db.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", t.Table, err)
	}

	result = make(map[string]activity.Entity, len(ids))
	for rows.Next() {
		fields, err := scanRow(rows, columns)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t.Table, err)
		}
		key, ok := activity.IdentifierOf(fields[t.KeyColumn])
		if !ok {
			continue
		}
		result[key] = activity.NewMapEntity(key, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", t.Table, err)
	}

	return result, nil
}

// scanRow reads the current row into a column -> value map. Byte slices become strings.
func scanRow(rows *sql.Rows, columns []string) (map[string]any, error) {
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			fields[col] = string(b)
			continue
		}
		fields[col] = values[i]
	}
	return fields, nil
}
