package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/activitylens/pkg/presenter"
)

// Columns of the rows produced by GroupedBySubject.
const (
	GroupColumnSubjectType = "subject_type"
	GroupColumnSubjectID   = "subject_id"
	GroupColumnLatestID    = presenter.DefaultLatestIDField
	GroupColumnCount       = "activity_count"
)

// SubjectGroups lists one row per subject with the id of its latest record, newest first.
type SubjectGroups struct {
	store  *ActivityStore
	filter SearchFilter
}

// GroupedBySubject returns a presenter.GroupQuery over the records matching filter.
// Limit and Offset of the filter are ignored; pagination comes from Paginate.
func (s *ActivityStore) GroupedBySubject(filter SearchFilter) *SubjectGroups {
	filter.Limit, filter.Offset = 0, 0
	return &SubjectGroups{store: s, filter: filter}
}

// Paginate implements presenter.GroupQuery.
func (g *SubjectGroups) Paginate(ctx context.Context, page, perPage int) (result *presenter.Page, err error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = presenter.DefaultPerPage
	}

	s := g.store
	start := time.Now()
	defer func() {
		s.metrics.RecordStorageOperation("paginate_subject_groups", time.Since(start), err)
	}()

	countQB := newQueryBuilder(s.dialect)
	g.filter.apply(countQB)
	countQuery := "SELECT COUNT(*) FROM (SELECT subject_type, subject_id FROM " + s.table +
		countQB.whereClause() + " GROUP BY subject_type, subject_id) grouped"

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countQB.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count subject groups: %w", err)
	}

	result = &presenter.Page{Total: total, PerPage: perPage, CurrentPage: page}
	if total == 0 {
		return result, nil
	}

	qb := newQueryBuilder(s.dialect)
	g.filter.apply(qb)
	query := "SELECT subject_type, subject_id, MAX(id) AS " + GroupColumnLatestID + ", COUNT(*) AS " + GroupColumnCount +
		" FROM " + s.table + qb.whereClause() +
		" GROUP BY subject_type, subject_id ORDER BY " + GroupColumnLatestID + " DESC" +
		" LIMIT " + qb.arg(perPage) + " OFFSET " + qb.arg((page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject groups: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read subject group columns: %w", err)
	}
	for rows.Next() {
		values, err := scanRow(rows, columns)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject group: %w", err)
		}
		result.Rows = append(result.Rows, &presenter.GroupRow{Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subject groups: %w", err)
	}

	return result, nil
}
