package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	applog "budgetly/internal/log"
)

type contextKey struct{}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserIDFromContext returns the authenticated user, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok
}

// Middleware rejects requests without a valid bearer token by calling
// unauthorized, and stores the user ID in the request context otherwise.
func (i *Issuer) Middleware(unauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w, r)
				return
			}

			userID, err := i.Verify(strings.TrimSpace(token))
			if err != nil {
				slog.DebugContext(r.Context(), "Rejected bearer token", applog.FieldComponent, applog.ComponentAuth, "error", err)
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
