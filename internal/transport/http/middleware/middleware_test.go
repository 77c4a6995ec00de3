package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerCountingWriter struct {
	*httptest.ResponseRecorder
	writes int
}

func (w *headerCountingWriter) WriteHeader(code int) {
	w.writes++
	w.ResponseRecorder.WriteHeader(code)
}

func TestDeadline_CancelsContextWithoutWriting(t *testing.T) {
	var ctxErr error
	h := Deadline(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		require.True(t, ok)
		<-r.Context().Done()
		ctxErr = r.Context().Err()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := &headerCountingWriter{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statuses", nil))

	assert.True(t, errors.Is(ctxErr, context.DeadlineExceeded))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1, rec.writes, "only the handler writes the status line")
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/statuses", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
