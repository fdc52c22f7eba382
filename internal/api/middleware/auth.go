package middleware

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/eventdesk/internal/api/problem"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	claimsKey contextKey = "claims"
	actorKey  contextKey = "actor"
)

// JWTAuth requires a valid bearer token. The token's subject and roles
// become the events.Actor for the rest of the request.
func JWTAuth(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				unauthorized(w, r, "Unauthorized", auth.ErrInvalidToken, env)
				return
			}

			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				unauthorized(w, r, "Missing bearer token", err, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				unauthorized(w, r, "Invalid token", err, env)
				return
			}

			actor := events.Actor{Subject: claims.Subject, Admin: claims.IsAdmin()}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = WithActor(ctx, actor)

			logger := zerolog.Ctx(ctx).With().Str("subject", actor.Subject).Bool("admin", actor.Admin).Logger()
			ctx = logger.WithContext(ctx)

			trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", actor.Subject))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, title string, err error, env string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="eventdesk"`)
	problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, title, err, env)
}

func WithActor(ctx context.Context, actor events.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor set by JWTAuth.
func ActorFromContext(ctx context.Context) (events.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(events.Actor)
	return actor, ok
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
