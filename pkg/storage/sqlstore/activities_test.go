package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/presenter"
)

const invoiceType = `App\Models\Invoice`

// openSQLite opens an in-memory database with the activity schema in place.
func openSQLite(t *testing.T) (*sql.DB, *ActivityStore) {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := Open(ctx, config.DatabaseConfig{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.Equal(t, SQLite, dialect)

	store, err := NewActivityStore(db, dialect, "activity_log")
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	return db, store
}

// seedInvoices logs two records for invoice 1 and one for invoice 2, oldest first.
func seedInvoices(t *testing.T, store *ActivityStore) []*activity.Record {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []*activity.Record{
		{
			Timestamp:   base,
			LogName:     "billing",
			Event:       activity.EventCreated,
			Causer:      &activity.Reference{Type: "user", ID: "1"},
			SubjectType: invoiceType,
			SubjectID:   "1",
			New:         activity.Properties{"status": "draft", "amount": 10},
		},
		{
			Timestamp:   base.Add(time.Hour),
			LogName:     "billing",
			Event:       activity.EventUpdated,
			Causer:      &activity.Reference{Type: "user", ID: "2"},
			SubjectType: invoiceType,
			SubjectID:   "1",
			Old:         activity.Properties{"status": "draft"},
			New:         activity.Properties{"status": "paid"},
		},
		{
			Timestamp:   base.Add(2 * time.Hour),
			Event:       activity.EventCreated,
			Description: "imported",
			SubjectType: invoiceType,
			SubjectID:   "2",
			New:         activity.Properties{"status": "draft"},
		},
	}
	for _, r := range records {
		require.NoError(t, store.Log(context.Background(), r))
	}
	return records
}

func TestNewActivityStore(t *testing.T) {
	_, err := NewActivityStore(nil, Postgres, "activity log")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	store, err := NewActivityStore(nil, Postgres, "audit.activity_log")
	require.NoError(t, err)
	assert.Equal(t, "audit.activity_log", store.table)
}

func TestActivityStore_EnsureSchema(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()

		store, err := NewActivityStore(db, Postgres, "activity_log")
		require.NoError(t, err)

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS activity_log .*BIGSERIAL.*JSONB").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_activity_log_subject").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_activity_log_causer").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_activity_log_created_at").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, store.EnsureSchema(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()

		store, err := NewActivityStore(db, Postgres, "activity_log")
		require.NoError(t, err)

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS activity_log").WillReturnError(errors.New("permission denied"))

		err = store.EnsureSchema(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create activity schema")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestActivityStore_Log(t *testing.T) {
	t.Run("postgres insert returns id", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()

		store, err := NewActivityStore(db, Postgres, "activity_log")
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO activity_log")).
			WithArgs(nil, "", invoiceType, "9", "updated", "user", "1",
				`{"old":{"status":"draft"},"attributes":{"status":"paid"}}`, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

		record := &activity.Record{
			Event:       activity.EventUpdated,
			Causer:      &activity.Reference{Type: "user", ID: "1"},
			SubjectType: invoiceType,
			SubjectID:   "9",
			Old:         activity.Properties{"status": "draft"},
			New:         activity.Properties{"status": "paid"},
		}
		require.NoError(t, store.Log(context.Background(), record))
		assert.Equal(t, int64(42), record.ID)
		assert.False(t, record.Timestamp.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil record", func(t *testing.T) {
		store, err := NewActivityStore(nil, Postgres, "activity_log")
		require.NoError(t, err)
		assert.Error(t, store.Log(context.Background(), nil))
	})

	t.Run("insert error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()

		store, err := NewActivityStore(db, Postgres, "activity_log")
		require.NoError(t, err)

		mock.ExpectQuery("INSERT INTO activity_log").WillReturnError(errors.New("disk full"))

		err = store.Log(context.Background(), &activity.Record{Event: "created"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert activity record")
	})
}

func TestActivityStore_FetchRecordsPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store, err := NewActivityStore(db, Postgres, "activity_log")
	require.NoError(t, err)

	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "log_name", "description", "subject_type", "subject_id", "event", "causer_type", "causer_id", "properties", "created_at"}).
		AddRow(int64(3), nil, "", invoiceType, "2", "created", nil, nil, []byte(`{"attributes":{"status":"draft"}}`), ts)

	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_log WHERE 1=1 AND id = ANY($1) AND event = $2 ORDER BY id DESC")).
		WithArgs(pq.Array([]int64{3, 2}), "created").
		WillReturnRows(rows)

	q := (&presenter.RecordQuery{IDs: []int64{3, 2}, OrderBy: "id DESC"}).Where("event", "created")
	records, err := store.FetchRecords(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, int64(3), r.ID)
	assert.Nil(t, r.Causer)
	assert.Equal(t, "draft", r.New["status"])
	assert.Nil(t, r.Old)
	assert.True(t, ts.Equal(r.Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityStore_FetchRecordsRejectsBadInput(t *testing.T) {
	store, err := NewActivityStore(nil, Postgres, "activity_log")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.FetchRecords(ctx, (&presenter.RecordQuery{}).Where("event; --", "x"))
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = store.FetchRecords(ctx, &presenter.RecordQuery{OrderBy: "id; DROP TABLE activity_log"})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestActivityStore_SQLite(t *testing.T) {
	ctx := context.Background()
	_, store := openSQLite(t)
	seeded := seedInvoices(t, store)

	assert.Equal(t, []int64{1, 2, 3}, []int64{seeded[0].ID, seeded[1].ID, seeded[2].ID})

	t.Run("get", func(t *testing.T) {
		r, err := store.Get(ctx, seeded[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "billing", r.LogName)
		assert.Equal(t, activity.EventUpdated, r.Event)
		assert.Equal(t, &activity.Reference{Type: "user", ID: "2"}, r.Causer)
		assert.Equal(t, invoiceType, r.SubjectType)
		assert.Equal(t, "1", r.SubjectID)
		assert.Equal(t, activity.Properties{"status": "draft"}, r.Old)
		assert.Equal(t, activity.Properties{"status": "paid"}, r.New)
		assert.True(t, seeded[1].Timestamp.Equal(r.Timestamp))
	})

	t.Run("get decodes numbers as float64", func(t *testing.T) {
		r, err := store.Get(ctx, seeded[0].ID)
		require.NoError(t, err)
		assert.Equal(t, float64(10), r.New["amount"])
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, 99)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("fetch by ids", func(t *testing.T) {
		records, err := store.FetchRecords(ctx, &presenter.RecordQuery{IDs: []int64{3, 1, 77}})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, int64(1), records[0].ID)
		assert.Equal(t, int64(3), records[1].ID)
	})

	t.Run("fetch with empty id list matches nothing", func(t *testing.T) {
		records, err := store.FetchRecords(ctx, &presenter.RecordQuery{IDs: []int64{}})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("search newest first", func(t *testing.T) {
		records, err := store.Search(ctx, SearchFilter{SubjectType: invoiceType, SubjectID: "1"})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, int64(2), records[0].ID)
		assert.Equal(t, int64(1), records[1].ID)
	})

	t.Run("search by causer and event", func(t *testing.T) {
		records, err := store.Search(ctx, SearchFilter{CauserType: "user", CauserID: "1", Event: activity.EventCreated})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, int64(1), records[0].ID)
	})

	t.Run("search with time range and paging", func(t *testing.T) {
		records, err := store.Search(ctx, SearchFilter{
			Since:  seeded[1].Timestamp,
			Limit:  1,
			Offset: 1,
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, int64(2), records[0].ID)
	})
}

func TestSubjectGroups_Paginate(t *testing.T) {
	ctx := context.Background()
	_, store := openSQLite(t)
	seedInvoices(t, store)

	groups := store.GroupedBySubject(SearchFilter{SubjectType: invoiceType})

	page, err := groups.Paginate(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.LastPage())
	require.Equal(t, 2, page.Count())

	first := page.Rows[0].Values
	assert.Equal(t, "2", first[GroupColumnSubjectID])
	assert.Equal(t, int64(3), first[GroupColumnLatestID])
	assert.Equal(t, int64(1), first[GroupColumnCount])

	second := page.Rows[1].Values
	assert.Equal(t, "1", second[GroupColumnSubjectID])
	assert.Equal(t, int64(2), second[GroupColumnLatestID])
	assert.Equal(t, int64(2), second[GroupColumnCount])

	page, err = groups.Paginate(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.LastPage())
	assert.Equal(t, 2, page.CurrentPage)
	require.Equal(t, 1, page.Count())
	assert.Equal(t, "1", page.Rows[0].Values[GroupColumnSubjectID])

	empty, err := store.GroupedBySubject(SearchFilter{SubjectType: "missing"}).Paginate(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, presenter.DefaultPerPage, empty.PerPage)
	assert.Equal(t, 1, empty.CurrentPage)
	assert.Zero(t, empty.Count())
}

func TestSubjectGroups_CountError(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store, err := NewActivityStore(db, Postgres, "activity_log")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (SELECT subject_type, subject_id FROM activity_log WHERE 1=1 AND event = $1 GROUP BY")).
		WithArgs("deleted").
		WillReturnError(errors.New("timeout"))

	_, err = store.GroupedBySubject(SearchFilter{Event: "deleted"}).Paginate(context.Background(), 1, 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count subject groups")
	assert.NoError(t, mock.ExpectationsWereMet())
}
