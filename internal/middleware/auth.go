package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-app-console/internal/model"
)

type userAuthenticator interface {
	AuthenticateToken(ctx context.Context, token string) (model.User, error)
}

type contextKey string

const currentUserContextKey contextKey = "current_user"

// RolePolicy is a declarative allow/deny rule for a route. Deny wins over
// allow; an empty policy admits any authenticated role.
type RolePolicy struct {
	Allow []string
	Deny  []string
}

func (p RolePolicy) Admits(role string) bool {
	for _, denied := range p.Deny {
		if strings.EqualFold(role, denied) {
			return false
		}
	}
	if len(p.Allow) == 0 {
		return true
	}
	for _, allowed := range p.Allow {
		if strings.EqualFold(role, allowed) {
			return true
		}
	}
	return false
}

// AuthMiddleware is the user-session guard. Routes opt in explicitly:
// RequireAuth rejects requests without a valid user token, OptionalAuth
// resolves the principal when present but lets the request through
// without one, and RequireRoles layers the role policy on top.
type AuthMiddleware struct {
	auth userAuthenticator
}

func NewAuthMiddleware(auth userAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearer(r)
		if !ok {
			writeGuardError(w, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		user, err := m.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			writeGuardError(w, "UNAUTHORIZED", "invalid credential")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearer(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			// Optional routes proceed with no principal attached.
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (m *AuthMiddleware) RequireRoles(policy RolePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeGuardError(w, "UNAUTHORIZED", "authentication required")
				return
			}

			if !policy.Admits(user.Role) {
				writeGuardError(w, "FORBIDDEN", "you don't have access to this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func withUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, currentUserContextKey, user)
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(currentUserContextKey).(model.User)
	return user, ok
}

func extractBearer(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
