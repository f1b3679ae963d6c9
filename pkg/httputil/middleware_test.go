package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/activitylens/pkg/observability"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
	}))

	t.Run("generates uuid", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, seen)
	})

	t.Run("propagates header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "upstream-1")
		handler.ServeHTTP(w, r)

		assert.Equal(t, "upstream-1", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "upstream-1", seen)
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	handler := Chain(RequestIDMiddleware, LoggingMiddleware(logger))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Same(t, logger, observability.GetLogger(r.Context()))
			w.WriteHeader(http.StatusTeapot)
		}),
	)

	r := httptest.NewRequest(http.MethodGet, "/activities", nil)
	r.Header.Set(RequestIDHeader, "req-9")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	out := buf.String()
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id":"req-9"`)
	assert.Contains(t, out, `"path":"/activities"`)
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.ErrorLevel, &buf)

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.Contains(t, buf.String(), "panic in HTTP handler")
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
