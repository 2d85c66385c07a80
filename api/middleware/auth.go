package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lamnguyen-dev/pharmapos-backend/api/responses"
	pkgauth "github.com/lamnguyen-dev/pharmapos-backend/pkg/auth"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

type ctxKey string

const ctxActor ctxKey = "actor"

// Auth validates a bearer token and seeds the request context with the actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor := types.Actor{ID: claims.UserID, Name: claims.Name}
			ctx := context.WithValue(r.Context(), ctxActor, actor)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    actor.ID.String(),
					"actor_name": actor.Name,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) types.Actor {
	if actor, ok := ctx.Value(ctxActor).(types.Actor); ok {
		return actor
	}
	return types.Actor{}
}
