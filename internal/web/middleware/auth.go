package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/pysugar/drive-nexus/internal/web/respond"
)

type userKey struct{}

// UserFinder resolves an API key to its owner.
type UserFinder interface {
	FindUserByAPIKey(ctx context.Context, key string) (*models.User, error)
}

// UserAuth authenticates the request by API key and stores the user on the
// request context. The key is read from "Authorization: Bearer", then the
// x-auth header.
func UserAuth(users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKeyFromRequest(r)
			if key == "" {
				respond.Error(w, r, apperr.New(apperr.ErrUnauthenticated, "", "Missing API key"))
				return
			}

			user, err := users.FindUserByAPIKey(r.Context(), key)
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func apiKeyFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("x-auth"))
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, or nil outside UserAuth.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey{}).(*models.User)
	return user
}
