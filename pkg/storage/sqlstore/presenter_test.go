package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/presenter"
	"github.com/platinummonkey/activitylens/pkg/resolver"
)

func TestPresentGroupedFromSQLite(t *testing.T) {
	ctx := context.Background()
	db, activities := openSQLite(t)
	seedInvoices(t, activities)

	_, err := db.ExecContext(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO users (id, name) VALUES (1, 'Ada'), (2, 'Grace')`)
	require.NoError(t, err)

	entities, err := NewEntityStore(db, SQLite, map[string]config.EntityTable{
		"user": {Table: "users", LabelField: "name"},
	})
	require.NoError(t, err)

	registry := resolver.NewRegistry()
	require.NoError(t, entities.Register(registry, nil))

	p := presenter.New(config.DefaultResolution(), registry)
	page, err := p.PresentGrouped(ctx, activities.GroupedBySubject(SearchFilter{}), activities, presenter.GroupOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Count())

	// invoice 2 was created without a causer
	latest := page.Rows[0]
	require.NotNil(t, latest.Presentation)
	assert.Equal(t, "System", latest.Presentation.CauserLabel(""))
	assert.Equal(t, "Invoice #2", latest.Presentation.SubjectLabel(""))
	assert.Equal(t, p.EncodeSubjectType(invoiceType), latest.EncodedSubjectType)

	// invoice 1 was last updated by user 2
	older := page.Rows[1]
	require.NotNil(t, older.Presentation)
	assert.Equal(t, "Grace", older.Presentation.CauserLabel(""))
	assert.Equal(t, "Updated", older.Presentation.EventLabel())

	change, ok := older.Presentation.Change("status")
	require.True(t, ok)
	assert.Equal(t, "draft", change.Old)
	assert.Equal(t, "paid", change.New)
}
