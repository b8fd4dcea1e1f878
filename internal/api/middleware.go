// Package api implements the navgate REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"
)

// ActorHeader names the caller when authentication is disabled.
const ActorHeader = "X-Actor"

// Auth describes how callers are identified.
//
// With Enabled false the actor is taken from the X-Actor header (absent
// means anonymous). With Enabled true requests must carry
// "Authorization: Bearer <token>" and the token selects the actor.
type Auth struct {
	Enabled bool
	Tokens  map[string]string // token -> actor
}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor resolved by AuthMiddleware.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// AuthMiddleware resolves the calling actor and stores it in the request
// context.
func AuthMiddleware(auth Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled {
				actor := strings.TrimSpace(r.Header.Get(ActorHeader))
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
				return
			}
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			actor, ok := auth.Tokens[strings.TrimPrefix(header, "Bearer ")]
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
