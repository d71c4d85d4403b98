package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"club-overview-console/internal/domain"
	"club-overview-console/pkg/logging"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	actorKey    contextKey = "actor"
	clientIPKey contextKey = "client_ip"
)

// Middleware resolves the actor from the client IP and rejects unknown callers with 401.
type Middleware struct {
	resolver *ActorResolver
}

func NewMiddleware(resolver *ActorResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handler wraps an HTTP handler with actor resolution.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r)

		if !m.resolver.IsLoaded() {
			unauthorized(w, clientIP, "actor list not loaded")
			return
		}
		actor, found := m.resolver.Resolve(r)
		if !found {
			unauthorized(w, clientIP, "unknown client")
			return
		}

		ctx := WithActor(r.Context(), actor)
		ctx = context.WithValue(ctx, clientIPKey, clientIP)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithActor stores the actor in ctx, including the id the logger picks up.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	return context.WithValue(ctx, logging.ActorIDKey, actor.UID)
}

// ActorFromContext retrieves the actor set by the middleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey).(domain.Actor)
	return a, ok
}

// ClientIPFromContext retrieves the client IP from the request context
func ClientIPFromContext(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPKey).(string)
	return ip, ok
}

func unauthorized(w http.ResponseWriter, ip, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason, "client_ip": ip})
}
