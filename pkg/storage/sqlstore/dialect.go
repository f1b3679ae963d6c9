package sqlstore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ErrInvalidIdentifier is returned for table or column names that are not plain SQL identifiers.
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Dialect captures the placeholder and schema differences between the supported drivers.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// DialectFor maps a driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres:
		return Postgres, nil
	case DriverSQLite:
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Driver returns the database/sql driver name.
func (d Dialect) Driver() string {
	if d == SQLite {
		return DriverSQLite
	}
	return DriverPostgres
}

func (d Dialect) String() string {
	return d.Driver()
}

func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// queryBuilder accumulates WHERE conditions and their arguments.
type queryBuilder struct {
	dialect    Dialect
	args       []any
	conditions []string
}

func newQueryBuilder(d Dialect) *queryBuilder {
	return &queryBuilder{dialect: d}
}

// arg appends v and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.dialect.placeholder(len(b.args))
}

func (b *queryBuilder) where(condition string) {
	b.conditions = append(b.conditions, condition)
}

func (b *queryBuilder) equals(column string, v any) {
	b.where(column + " = " + b.arg(v))
}

// in adds "column = ANY($n)" for PostgreSQL and "column IN (?, ...)" for SQLite.
// values must be a []string or []int64.
func (b *queryBuilder) in(column string, values any) {
	if b.dialect == Postgres {
		b.where(column + " = ANY(" + b.arg(pq.Array(values)) + ")")
		return
	}

	var placeholders []string
	switch vs := values.(type) {
	case []string:
		for _, v := range vs {
			placeholders = append(placeholders, b.arg(v))
		}
	case []int64:
		for _, v := range vs {
			placeholders = append(placeholders, b.arg(v))
		}
	}
	if len(placeholders) == 0 {
		b.where("1=0")
		return
	}
	b.where(column + " IN (" + strings.Join(placeholders, ", ") + ")")
}

// inText is like in but compares the column as text on PostgreSQL, so values that do
// not parse as the column type match nothing instead of failing the query.
func (b *queryBuilder) inText(column string, values []string) {
	if b.dialect == Postgres {
		b.where(column + "::text = ANY(" + b.arg(pq.Array(values)) + "::text[])")
		return
	}
	b.in(column, values)
}

// whereClause renders " WHERE 1=1 AND ..." for the collected conditions.
func (b *queryBuilder) whereClause() string {
	var sb strings.Builder
	sb.WriteString(" WHERE 1=1")
	for _, c := range b.conditions {
		sb.WriteString(" AND ")
		sb.WriteString(c)
	}
	return sb.String()
}
