package resolver

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/observability"
)

type fetchCall struct {
	ids []string
}

// recordingFetcher serves entities from a fixed set and records every call.
type recordingFetcher struct {
	entities map[string]activity.Entity
	err      error
	calls    []fetchCall
}

func newRecordingFetcher(ids ...string) *recordingFetcher {
	f := &recordingFetcher{entities: make(map[string]activity.Entity)}
	for _, id := range ids {
		f.entities[id] = activity.NewMapEntity(id, map[string]any{"name": "entity " + id})
	}
	return f
}

func (f *recordingFetcher) Fetch(_ context.Context, ids []string) (map[string]activity.Entity, error) {
	f.calls = append(f.calls, fetchCall{ids: append([]string(nil), ids...)})
	if f.err != nil {
		return nil, f.err
	}
	found := make(map[string]activity.Entity)
	for _, id := range ids {
		if e, ok := f.entities[id]; ok {
			found[id] = e
		}
	}
	return found, nil
}

func userResolution() config.Resolution {
	r := config.DefaultResolution()
	r.Resolvers = map[string]string{"user_id": "User", "approver_id": "User", "team_id": "Team"}
	return r
}

func TestBatchResolver_OneFetchPerType(t *testing.T) {
	users := newRecordingFetcher("1", "2", "3")
	registry := NewRegistry()
	registry.MustRegister("User", Descriptor{Fetch: users.Fetch})

	records := []*activity.Record{
		{ID: 1, Old: activity.Properties{"user_id": 1}, New: activity.Properties{"user_id": 2}},
		{ID: 2, New: activity.Properties{"user_id": float64(2), "approver_id": "3"}},
		{ID: 3, Old: activity.Properties{"approver_id": 1}},
		{ID: 4, New: activity.Properties{"title": "no resolvable fields"}},
	}

	table, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, users.calls, 1)
	ids := users.calls[0].ids
	sort.Strings(ids)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	assert.Equal(t, 3, table.Len("User"))
	assert.NotNil(t, table.Lookup("User", "2"))
}

func TestBatchResolver_LargeBatch(t *testing.T) {
	users := newRecordingFetcher("7")
	registry := NewRegistry()
	registry.MustRegister("User", Descriptor{Fetch: users.Fetch})

	records := make([]*activity.Record, 0, 5000)
	for i := 0; i < 5000; i++ {
		records = append(records, &activity.Record{ID: int64(i + 1), New: activity.Properties{"user_id": i % 50}})
	}

	_, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, users.calls, 1)
	assert.Len(t, users.calls[0].ids, 50)
}

func TestBatchResolver_SkipsTypesWithoutCandidates(t *testing.T) {
	users := newRecordingFetcher()
	teams := newRecordingFetcher("9")
	registry := NewRegistry()
	registry.MustRegister("User", Descriptor{Fetch: users.Fetch})
	registry.MustRegister("Team", Descriptor{Fetch: teams.Fetch})

	records := []*activity.Record{
		{ID: 1, New: activity.Properties{"team_id": 9, "user_id": nil}},
		{ID: 2, Old: activity.Properties{"user_id": ""}},
	}

	table, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
	require.NoError(t, err)

	assert.Empty(t, users.calls, "null and empty identifiers never trigger a fetch")
	assert.Len(t, teams.calls, 1)
	assert.NotNil(t, table.Lookup("Team", "9"))
}

func TestBatchResolver_UnknownTypeIsSkipped(t *testing.T) {
	registry := NewRegistry()
	records := []*activity.Record{{ID: 1, New: activity.Properties{"user_id": 1}}}

	table, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
	require.NoError(t, err)
	assert.Empty(t, table.Types())
}

func TestBatchResolver_StoreReportsUnknownType(t *testing.T) {
	users := newRecordingFetcher()
	users.err = ErrUnknownEntityType
	registry := NewRegistry()
	registry.MustRegister("User", Descriptor{Fetch: users.Fetch, FailHard: true})

	records := []*activity.Record{{ID: 1, New: activity.Properties{"user_id": 1}}}
	table, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
	require.NoError(t, err)
	assert.Nil(t, table.Lookup("User", "1"))
}

func TestBatchResolver_FailurePolicy(t *testing.T) {
	records := []*activity.Record{{ID: 1, New: activity.Properties{"user_id": 1, "team_id": 2}}}

	t.Run("soft failure leaves type unresolved", func(t *testing.T) {
		users := newRecordingFetcher("1")
		users.err = errors.New("connection refused")
		teams := newRecordingFetcher("2")

		registry := NewRegistry()
		registry.MustRegister("User", Descriptor{Fetch: users.Fetch})
		registry.MustRegister("Team", Descriptor{Fetch: teams.Fetch})

		var buf bytes.Buffer
		metrics := observability.NewMetrics(prometheus.NewRegistry())
		batch := NewBatchResolver(registry, userResolution(),
			WithLogger(observability.NewLogger(observability.WarnLevel, &buf)),
			WithMetrics(metrics),
		)

		table, err := batch.Resolve(context.Background(), records)
		require.NoError(t, err)
		assert.Nil(t, table.Lookup("User", "1"))
		assert.NotNil(t, table.Lookup("Team", "2"))
		assert.Contains(t, buf.String(), "entity fetch failed")
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EntityFetchesTotal.WithLabelValues("User", "error")))
	})

	t.Run("hard descriptor propagates", func(t *testing.T) {
		cause := errors.New("connection refused")
		users := newRecordingFetcher("1")
		users.err = cause

		registry := NewRegistry()
		registry.MustRegister("User", Descriptor{Fetch: users.Fetch, FailHard: true})

		_, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
		require.Error(t, err)

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.True(t, fetchErr.Hard)
		assert.Equal(t, "User", fetchErr.EntityType)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("hard fetch error from collaborator propagates unchanged", func(t *testing.T) {
		hard := &FetchError{EntityType: "User", Hard: true, Err: errors.New("tls handshake")}
		users := newRecordingFetcher()
		users.err = hard

		registry := NewRegistry()
		registry.MustRegister("User", Descriptor{Fetch: users.Fetch})

		_, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
		assert.Same(t, hard, err)
	})

	t.Run("cancelled context propagates", func(t *testing.T) {
		users := newRecordingFetcher("1")
		registry := NewRegistry()
		registry.MustRegister("User", Descriptor{Fetch: users.Fetch})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewBatchResolver(registry, userResolution()).Resolve(ctx, records)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, users.calls)
	})
}

func TestBatchResolver_CauserAndSubject(t *testing.T) {
	users := newRecordingFetcher("1", "5")
	invoices := newRecordingFetcher("42")
	registry := NewRegistry()
	registry.MustRegister("User", Descriptor{Fetch: users.Fetch})
	registry.MustRegister("Invoice", Descriptor{Fetch: invoices.Fetch})

	records := []*activity.Record{
		{
			ID:          1,
			Causer:      &activity.Reference{Type: "User", ID: "5"},
			SubjectType: "Invoice",
			SubjectID:   "42",
			New:         activity.Properties{"user_id": 1},
		},
	}

	table, err := NewBatchResolver(registry, userResolution()).Resolve(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, users.calls, 1, "causer ids share the field fetch")
	assert.ElementsMatch(t, []string{"1", "5"}, users.calls[0].ids)
	assert.NotNil(t, table.LookupRef(records[0].Causer))
	assert.NotNil(t, table.LookupRef(records[0].SubjectRef()))
}

func TestBatchResolver_Collect(t *testing.T) {
	batch := NewBatchResolver(NewRegistry(), userResolution())

	candidates := batch.Collect([]*activity.Record{
		nil,
		{New: activity.Properties{"user_id": 2, "approver_id": 2}},
		{Old: activity.Properties{"user_id": 1}, New: activity.Properties{"user_id": 2}},
	})

	assert.Equal(t, map[string][]string{"User": {"2", "1"}}, candidates)
}

func TestBatchResolver_CollectSkipsBooleans(t *testing.T) {
	batch := NewBatchResolver(NewRegistry(), userResolution())

	candidates := batch.Collect([]*activity.Record{
		{Old: activity.Properties{"user_id": false}, New: activity.Properties{"user_id": true, "team_id": false}},
		{Old: activity.Properties{"approver_id": 4}, New: activity.Properties{"approver_id": true}},
	})

	assert.Equal(t, map[string][]string{"User": {"4"}}, candidates)
}
