// Package middleware carries the HTTP cross-cutting layers: bearer-token
// authentication and actor extraction. Account management itself lives in an
// external identity service; this package only verifies its tokens.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const actorContextKey contextKey = "actor"

const jwtClaimUserID = "user_id"

// Authenticate verifies the HS256 bearer token and stores the actor id in the
// request context. Requests without a valid token are rejected.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, err := actorFromRequest(r, secret)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "invalid or missing authentication token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), actorContextKey, actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID returns the authenticated user id placed by Authenticate.
func ActorID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(actorContextKey).(int)
	return id, ok
}

func actorFromRequest(r *http.Request, secret []byte) (int, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, errors.New("authorization header is not a bearer token")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("token is not valid")
	}

	switch v := claims[jwtClaimUserID].(type) {
	case float64:
		return int(v), nil
	case string:
		var id int
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil {
			return 0, fmt.Errorf("malformed %s claim", jwtClaimUserID)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("missing %s claim", jwtClaimUserID)
	}
}
