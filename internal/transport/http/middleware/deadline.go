package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the request context so a stalled backend call is cancelled.
// It never writes to the response; handlers report the expired deadline
// themselves.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
