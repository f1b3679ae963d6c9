package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/presenter"
)

// ErrRecordNotFound is returned by Get when no record has the requested id.
var ErrRecordNotFound = errors.New("activity record not found")

// DefaultSearchLimit caps Search results when the filter sets no limit.
const DefaultSearchLimit = 50

const activityColumns = "id, log_name, description, subject_type, subject_id, event, causer_type, causer_id, properties, created_at"

var orderByPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(\s+(?i:asc|desc))?$`)

// storedProperties is the JSON layout of the properties column.
type storedProperties struct {
	Old        activity.Properties `json:"old,omitempty"`
	Attributes activity.Properties `json:"attributes,omitempty"`
}

// ActivityStore reads and writes activity records in one table.
type ActivityStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	metrics *observability.Metrics
}

// ActivityStoreOption configures an ActivityStore.
type ActivityStoreOption func(*ActivityStore)

// WithActivityMetrics records storage operation metrics.
func WithActivityMetrics(m *observability.Metrics) ActivityStoreOption {
	return func(s *ActivityStore) {
		s.metrics = m
	}
}

// NewActivityStore creates a store over table.
func NewActivityStore(db *sql.DB, dialect Dialect, table string, opts ...ActivityStoreOption) (*ActivityStore, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}
	s := &ActivityStore{db: db, dialect: dialect, table: table}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureSchema creates the activity table and its indexes if they do not exist.
func (s *ActivityStore) EnsureSchema(ctx context.Context) error {
	idColumn := "id BIGSERIAL PRIMARY KEY"
	propertiesType := "JSONB"
	timestampType := "TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()"
	if s.dialect == SQLite {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
		propertiesType = "TEXT"
		timestampType = "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"
	}

	index := strings.ReplaceAll(s.table, ".", "_")
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			` + idColumn + `,
			log_name VARCHAR(255),
			description TEXT NOT NULL DEFAULT '',
			subject_type VARCHAR(255),
			subject_id VARCHAR(255),
			event VARCHAR(255),
			causer_type VARCHAR(255),
			causer_id VARCHAR(255),
			properties ` + propertiesType + `,
			created_at ` + timestampType + `
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + index + `_subject ON ` + s.table + `(subject_type, subject_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + index + `_causer ON ` + s.table + `(causer_type, causer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + index + `_created_at ON ` + s.table + `(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create activity schema: %w", err)
		}
	}
	return nil
}

// Log inserts record and sets its ID. A zero timestamp is set to the current time.
func (s *ActivityStore) Log(ctx context.Context, record *activity.Record) (err error) {
	if record == nil {
		return errors.New("record is nil")
	}
	start := time.Now()
	defer func() {
		s.metrics.RecordStorageOperation("log_activity", time.Since(start), err)
	}()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	properties, err := json.Marshal(storedProperties{Old: record.Old, Attributes: record.New})
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}

	var causerType, causerID sql.NullString
	if record.Causer != nil {
		causerType = nullString(record.Causer.Type)
		causerID = nullString(record.Causer.ID)
	}

	qb := newQueryBuilder(s.dialect)
	values := []string{
		qb.arg(nullString(record.LogName)),
		qb.arg(record.Description),
		qb.arg(nullString(record.SubjectType)),
		qb.arg(nullString(record.SubjectID)),
		qb.arg(nullString(record.Event)),
		qb.arg(causerType),
		qb.arg(causerID),
		qb.arg(string(properties)),
		qb.arg(record.Timestamp),
	}
	query := `INSERT INTO ` + s.table + ` (log_name, description, subject_type, subject_id, event, causer_type, causer_id, properties, created_at)
		VALUES (` + strings.Join(values, ", ") + `)
		RETURNING id`

	if err := s.db.QueryRowContext(ctx, query, qb.args...).Scan(&record.ID); err != nil {
		return fmt.Errorf("failed to insert activity record: %w", err)
	}
	return nil
}

// Get returns the record with the given id.
func (s *ActivityStore) Get(ctx context.Context, id int64) (record *activity.Record, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrRecordNotFound) {
			s.metrics.RecordStorageOperation("get_activity", time.Since(start), nil)
			return
		}
		s.metrics.RecordStorageOperation("get_activity", time.Since(start), err)
	}()

	qb := newQueryBuilder(s.dialect)
	qb.equals("id", id)
	query := "SELECT " + activityColumns + " FROM " + s.table + qb.whereClause()

	record, err = scanRecord(s.db.QueryRowContext(ctx, query, qb.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity record: %w", err)
	}
	return record, nil
}

// FetchRecords implements presenter.RecordSource. Filters are equality conditions on
// columns; OrderBy defaults to "id".
func (s *ActivityStore) FetchRecords(ctx context.Context, q *presenter.RecordQuery) (records []*activity.Record, err error) {
	if q == nil {
		q = &presenter.RecordQuery{}
	}
	start := time.Now()
	defer func() {
		s.metrics.RecordStorageOperation("fetch_activities", time.Since(start), err)
	}()

	qb := newQueryBuilder(s.dialect)
	if q.IDs != nil {
		qb.in("id", q.IDs)
	}
	for _, column := range sortedFilterColumns(q.Filters) {
		if err := checkIdentifier(column); err != nil {
			return nil, err
		}
		qb.equals(column, q.Filters[column])
	}

	orderBy := "id"
	if q.OrderBy != "" {
		if !orderByPattern.MatchString(strings.TrimSpace(q.OrderBy)) {
			return nil, fmt.Errorf("%w: order by %q", ErrInvalidIdentifier, q.OrderBy)
		}
		orderBy = strings.TrimSpace(q.OrderBy)
	}

	query := "SELECT " + activityColumns + " FROM " + s.table + qb.whereClause() + " ORDER BY " + orderBy
	return s.queryRecords(ctx, query, qb.args)
}

// SearchFilter selects records for Search and GroupedBySubject. Empty fields are ignored.
type SearchFilter struct {
	LogName     string
	SubjectType string
	SubjectID   string
	CauserType  string
	CauserID    string
	Event       string
	Since       time.Time
	Until       time.Time
	Limit       int
	Offset      int
}

func (f SearchFilter) apply(qb *queryBuilder) {
	if f.LogName != "" {
		qb.equals("log_name", f.LogName)
	}
	if f.SubjectType != "" {
		qb.equals("subject_type", f.SubjectType)
	}
	if f.SubjectID != "" {
		qb.equals("subject_id", f.SubjectID)
	}
	if f.CauserType != "" {
		qb.equals("causer_type", f.CauserType)
	}
	if f.CauserID != "" {
		qb.equals("causer_id", f.CauserID)
	}
	if f.Event != "" {
		qb.equals("event", f.Event)
	}
	if !f.Since.IsZero() {
		qb.where("created_at >= " + qb.arg(f.Since))
	}
	if !f.Until.IsZero() {
		qb.where("created_at <= " + qb.arg(f.Until))
	}
}

// Search returns matching records, newest first.
func (s *ActivityStore) Search(ctx context.Context, filter SearchFilter) (records []*activity.Record, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordStorageOperation("search_activities", time.Since(start), err)
	}()

	qb := newQueryBuilder(s.dialect)
	filter.apply(qb)

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + activityColumns + " FROM " + s.table + qb.whereClause() +
		" ORDER BY created_at DESC, id DESC LIMIT " + qb.arg(limit) + " OFFSET " + qb.arg(offset)
	return s.queryRecords(ctx, query, qb.args)
}

func (s *ActivityStore) queryRecords(ctx context.Context, query string, args []any) ([]*activity.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity records: %w", err)
	}
	defer rows.Close()

	var records []*activity.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*activity.Record, error) {
	var (
		record                          activity.Record
		logName, subjectType, subjectID sql.NullString
		event, causerType, causerID     sql.NullString
		properties                      []byte
	)
	err := row.Scan(
		&record.ID,
		&logName,
		&record.Description,
		&subjectType,
		&subjectID,
		&event,
		&causerType,
		&causerID,
		&properties,
		&record.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	record.LogName = logName.String
	record.SubjectType = subjectType.String
	record.SubjectID = subjectID.String
	record.Event = event.String
	if causerType.String != "" && causerID.String != "" {
		record.Causer = &activity.Reference{Type: causerType.String, ID: causerID.String}
	}

	if len(properties) > 0 {
		var stored storedProperties
		if err := json.Unmarshal(properties, &stored); err != nil {
			return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
		}
		record.Old = stored.Old
		record.New = stored.Attributes
	}

	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func sortedFilterColumns(filters map[string]any) []string {
	columns := make([]string, 0, len(filters))
	for c := range filters {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}
