//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-app-console/internal/config"
	"go-app-console/internal/crypto"
	"go-app-console/internal/handler"
	"go-app-console/internal/middleware"
	"go-app-console/internal/model"
	"go-app-console/internal/repository"
	"go-app-console/internal/router"
	"go-app-console/internal/service"
	"go-app-console/internal/token"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		JWTSecret:        "integration-jwt-secret",
		EnvelopeSecret:   "integration-envelope-secret",
		UserTokenTTL:     time.Hour,
		APIKeyPrefix:     "ak",
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
	}

	cipher, err := crypto.NewCipher(cfg.EnvelopeSecret)
	require.NoError(t, err)
	tokenService := token.New(cfg.JWTSecret, cfg.UserTokenTTL)

	userRepo := repository.NewMemUserRepository()
	applicationRepo := repository.NewMemApplicationRepository()

	authService := service.NewAuthService(userRepo, tokenService, cipher)
	userService := service.NewUserService(userRepo)
	applicationService := service.NewApplicationService(applicationRepo, tokenService, cipher, cfg.APIKeyPrefix)

	server := httptest.NewServer(router.New(cfg,
		middleware.NewAuthMiddleware(authService),
		middleware.NewAppKeyMiddleware(applicationService),
		router.Handlers{
			Auth:        handler.NewAuthHandler(authService),
			User:        handler.NewUserHandler(userService),
			Application: handler.NewApplicationHandler(applicationService),
		}))
	t.Cleanup(server.Close)

	return server
}

func signUp(t *testing.T, server *httptest.Server, email string, password string) string {
	t.Helper()

	payload, err := json.Marshal(model.SignUpRequest{
		Email:         email,
		Password:      password,
		CompanyName:   "Acme",
		ContactPerson: "Tester",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/v1/auth/sign-up", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var parsed apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)

	var credential model.Credential
	require.NoError(t, json.Unmarshal(parsed.Data, &credential))
	require.NotEmpty(t, credential.AccessToken)

	return credential.AccessToken
}

func doJSON(t *testing.T, method string, url string, body any, bearer string) (*http.Response, apiEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var parsed apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))

	return resp, parsed
}

func decodeData(t *testing.T, envelope apiEnvelope, out any) {
	t.Helper()
	require.NotNil(t, envelope.Data)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
