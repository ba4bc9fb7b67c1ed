package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"go-app-console/internal/model"
)

type apiKeyVerifier interface {
	VerifyAPIKey(ctx context.Context, token string) (model.Application, error)
}

const currentApplicationContextKey contextKey = "current_application"

// AppKeyMiddleware is the application-key guard. The verifier runs the
// two-phase decode-then-verify pipeline and returns the application with
// its secret key stripped.
type AppKeyMiddleware struct {
	verifier apiKeyVerifier
}

func NewAppKeyMiddleware(verifier apiKeyVerifier) *AppKeyMiddleware {
	return &AppKeyMiddleware{verifier: verifier}
}

func (m *AppKeyMiddleware) RequireAppKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearer(r)
		if !ok {
			writeGuardError(w, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		app, err := m.verifier.VerifyAPIKey(r.Context(), token)
		if err != nil {
			writeGuardError(w, "UNAUTHORIZED", "invalid credential")
			return
		}

		ctx := context.WithValue(r.Context(), currentApplicationContextKey, app)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ApplicationFromContext(ctx context.Context) (model.Application, bool) {
	app, ok := ctx.Value(currentApplicationContextKey).(model.Application)
	return app, ok
}

func writeGuardError(w http.ResponseWriter, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	if code == "FORBIDDEN" {
		w.WriteHeader(http.StatusForbidden)
	} else {
		w.WriteHeader(http.StatusUnauthorized)
	}

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
