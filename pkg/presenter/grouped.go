package presenter

import (
	"context"

	"github.com/platinummonkey/activitylens/pkg/activity"
)

// Grouped presentation defaults
const (
	DefaultPerPage       = 10
	DefaultLatestIDField = "latest_id"
)

// GroupRow is one row of a "latest record per group" listing.
type GroupRow struct {
	// Values holds the columns of the group query.
	Values map[string]any

	// Presentation and EncodedSubjectType are set when the row's record was found.
	Presentation       *Result
	EncodedSubjectType string

	// Mapped holds the output of GroupOptions.MapRow.
	Mapped any
}

// Page is one page of group rows.
type Page struct {
	Rows        []*GroupRow
	Total       int
	PerPage     int
	CurrentPage int
}

// Count returns the number of rows on the page.
func (p *Page) Count() int {
	if p == nil {
		return 0
	}
	return len(p.Rows)
}

// LastPage returns the number of the last page, at least 1.
func (p *Page) LastPage() int {
	if p == nil || p.PerPage <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// GroupQuery paginates group marker rows.
type GroupQuery interface {
	Paginate(ctx context.Context, page, perPage int) (*Page, error)
}

// RecordQuery selects the full records behind a page of group rows.
type RecordQuery struct {
	IDs     []int64
	Filters map[string]any
	OrderBy string
}

// Where adds an equality filter on column and returns q.
func (q *RecordQuery) Where(column string, value any) *RecordQuery {
	if q.Filters == nil {
		q.Filters = make(map[string]any)
	}
	q.Filters[column] = value
	return q
}

// RecordSource fetches records by query.
type RecordSource interface {
	FetchRecords(ctx context.Context, q *RecordQuery) ([]*activity.Record, error)
}

// GroupOptions configures PresentGrouped. Zero values select the defaults.
type GroupOptions struct {
	Page          int
	PerPage       int
	LatestIDField string

	// LoadRelations customizes the record query before it runs.
	LoadRelations func(q *RecordQuery)

	// AfterFetch post-processes the fetched records before resolution.
	AfterFetch func(records []*activity.Record) []*activity.Record

	// MapRow transforms a hydrated row; its result is stored in GroupRow.Mapped.
	MapRow func(row *GroupRow, record *activity.Record, result *Result) any
}

func (o GroupOptions) withDefaults() GroupOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PerPage < 1 {
		o.PerPage = DefaultPerPage
	}
	if o.LatestIDField == "" {
		o.LatestIDField = DefaultLatestIDField
	}
	return o
}

// markerID returns the record id a group row points at.
func markerID(row *GroupRow, latestIDField string) (int64, bool) {
	if row == nil {
		return 0, false
	}
	if id, ok := activity.ParseRecordID(row.Values[latestIDField]); ok {
		return id, true
	}
	return activity.ParseRecordID(row.Values["id"])
}
