package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware caps every request context at the given duration.
// Cancellation is cooperative: handlers observe it through ctx.Done(),
// and the flow runner's tool timeout nests inside it. A non-positive
// timeout disables the cap.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
