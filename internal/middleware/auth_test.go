package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-app-console/internal/model"
)

type stubAuthenticator struct {
	user model.User
	err  error
}

func (s *stubAuthenticator) AuthenticateToken(_ context.Context, _ string) (model.User, error) {
	return s.user, s.err
}

func okHandler(captured *model.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := UserFromContext(r.Context()); ok && captured != nil {
			*captured = user
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRolePolicy_Admits(t *testing.T) {
	cases := []struct {
		name   string
		policy RolePolicy
		role   string
		want   bool
	}{
		{"empty policy admits any role", RolePolicy{}, model.RoleUser, true},
		{"allow set admits listed role", RolePolicy{Allow: []string{model.RoleAdmin}}, model.RoleAdmin, true},
		{"allow set rejects unlisted role", RolePolicy{Allow: []string{model.RoleAdmin}}, model.RoleUser, false},
		{"deny set rejects listed role", RolePolicy{Deny: []string{model.RoleUser}}, model.RoleUser, false},
		{"deny wins over allow", RolePolicy{Allow: []string{model.RoleAdmin}, Deny: []string{model.RoleAdmin}}, model.RoleAdmin, false},
		{"deny set admits other roles", RolePolicy{Deny: []string{model.RoleUser}}, model.RoleAdmin, true},
		{"case insensitive match", RolePolicy{Allow: []string{"ADMIN"}}, model.RoleAdmin, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.Admits(tc.role))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Run("missing header is rejected", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubAuthenticator{})
		rec := httptest.NewRecorder()

		mw.RequireAuth(okHandler(nil)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubAuthenticator{err: errors.New("bad token")})
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer whatever")
		rec := httptest.NewRecorder()

		mw.RequireAuth(okHandler(nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token attaches principal", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubAuthenticator{user: model.User{ID: "u1", Role: model.RoleUser}})
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rec := httptest.NewRecorder()

		var seen model.User
		mw.RequireAuth(okHandler(&seen)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", seen.ID)
	})

	t.Run("empty bearer value is rejected", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubAuthenticator{user: model.User{ID: "u1"}})
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer ")
		rec := httptest.NewRecorder()

		mw.RequireAuth(okHandler(nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	t.Run("missing header proceeds without principal", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubAuthenticator{})
		rec := httptest.NewRecorder()

		var seen model.User
		mw.OptionalAuth(okHandler(&seen)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, seen.ID)
	})

	t.Run("invalid token proceeds without principal", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubAuthenticator{err: errors.New("bad token")})
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer whatever")
		rec := httptest.NewRecorder()

		var seen model.User
		mw.OptionalAuth(okHandler(&seen)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, seen.ID)
	})

	t.Run("valid token attaches principal", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubAuthenticator{user: model.User{ID: "u1"}})
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rec := httptest.NewRecorder()

		var seen model.User
		mw.OptionalAuth(okHandler(&seen)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", seen.ID)
	})
}

func TestRequireRoles(t *testing.T) {
	mw := NewAuthMiddleware(&stubAuthenticator{user: model.User{ID: "u1", Role: model.RoleUser}})

	t.Run("no principal is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.RequireRoles(RolePolicy{})(okHandler(nil)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("role outside allow set is forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rec := httptest.NewRecorder()

		chain := mw.RequireAuth(mw.RequireRoles(RolePolicy{Allow: []string{model.RoleAdmin}})(okHandler(nil)))
		chain.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admitted role passes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rec := httptest.NewRecorder()

		chain := mw.RequireAuth(mw.RequireRoles(RolePolicy{Allow: []string{model.RoleUser}})(okHandler(nil)))
		chain.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
