package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

const actorKey contextKey = "actor"

// ActorClaims is the bearer token payload: sub is the actor id.
type ActorClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

var errUnknownRole = errors.New("unknown role")

// ActorAuthentication resolves the bearer token into a model.Actor on the
// request context. Requests without a token continue as anonymous; a token
// that does not verify is rejected. An empty secret leaves every request
// anonymous.
func ActorAuthentication(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if secret == "" || !found || strings.TrimSpace(raw) == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := ParseActorToken(secret, strings.TrimSpace(raw))
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				reject(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// ParseActorToken verifies an HS256 token and returns its actor.
func ParseActorToken(secret, raw string) (model.Actor, error) {
	claims := &ActorClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Actor{}, err
	}

	if claims.Subject == "" {
		return model.Actor{}, fmt.Errorf("token has no subject")
	}
	switch claims.Role {
	case model.RoleAdmin, model.RoleAgent, model.RoleGuest, model.RoleSystem:
	default:
		return model.Actor{}, fmt.Errorf("%w: %q", errUnknownRole, claims.Role)
	}

	return model.Actor{ID: claims.Subject, Role: claims.Role}, nil
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated actor, or the anonymous zero
// Actor.
func ActorFromContext(ctx context.Context) model.Actor {
	actor, _ := ctx.Value(actorKey).(model.Actor)
	return actor
}
