package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Ayejay3194/business-spine/internal/auth"
	"github.com/Ayejay3194/business-spine/internal/domain"
)

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// AuthMiddleware validates API keys and injects the caller identity.
// The API key is extracted from the Authorization header (Bearer token format).
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				writeError(w, r, domain.ErrUnauthorized(err.Error()))
				return
			}

			identity, err := authenticator.ValidateAPIKey(apiKey)
			if err != nil {
				writeError(w, r, domain.ErrUnauthorized("invalid API key"))
				return
			}

			AddLogField(r.Context(), "tenant", identity.Tenant.ID)
			AddLogField(r.Context(), "actor", identity.Actor.UserID)

			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated identity from context.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(auth.Identity)
	return identity, ok
}

// requestContext builds the command pipeline context for an authenticated
// request. Logical time is stamped once here at the edge; everything
// downstream, including audit timestamps and token expiry checks, derives
// from it.
func requestContext(r *http.Request, identity auth.Identity) domain.RequestContext {
	return domain.RequestContext{
		Actor:    identity.Actor,
		TenantID: identity.Tenant.ID,
		Now:      time.Now().UTC(),
		Locale:   r.Header.Get("Accept-Language"),
		Timezone: r.Header.Get("X-Timezone"),
		Channel:  "api",
	}
}
