package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Check(t *testing.T) {
	t.Run("no dependencies is healthy", func(t *testing.T) {
		status := NewHealthChecker(nil, nil, "test").Check(context.Background())
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, "test", status.Version)
		assert.Empty(t, status.Dependencies)
	})

	t.Run("database down is unhealthy", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(assert.AnError)

		status := NewHealthChecker(db, nil, "").Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, StatusUnhealthy, status.Dependencies["database"].Status)
	})

	t.Run("redis down only degrades", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		mr, err := miniredis.Run()
		require.NoError(t, err)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		mr.Close()

		status := NewHealthChecker(db, client, "").Check(context.Background())
		assert.Equal(t, StatusDegraded, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
		assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
	})

	t.Run("all healthy", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		status := NewHealthChecker(nil, client, "").Check(context.Background())
		assert.Equal(t, StatusHealthy, status.Status)
	})
}

func TestHealthRoutes(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(assert.AnError)

	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, NewHealthChecker(db, nil, "1.2.3"))

	t.Run("liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness reports unavailable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var status HealthStatus
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, "1.2.3", status.Version)
	})
}

func TestPanicHelpers(t *testing.T) {
	t.Run("RecoverPanic swallows panic", func(t *testing.T) {
		func() {
			defer RecoverPanic(NopLogger(), "test")
			panic("boom")
		}()
	})

	t.Run("PanicError", func(t *testing.T) {
		assert.NoError(t, PanicError(nil))
		assert.EqualError(t, PanicError("boom"), "panic: boom")
		assert.ErrorIs(t, PanicError(assert.AnError), assert.AnError)
	})
}
