//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-app-console/internal/model"
)

func TestSignUpSignInFlow(t *testing.T) {
	server := newTestServer(t)

	accessToken := signUp(t, server, "alice@example.com", "correct horse")

	meResp, me := doJSON(t, http.MethodGet, server.URL+"/api/v1/users/me", nil, accessToken)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var user model.User
	decodeData(t, me, &user)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)

	// Sign-in with the same credentials issues another working token.
	signInResp, signIn := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/sign-in",
		model.SignInRequest{Email: "ALICE@example.com", Password: "correct horse"}, "")
	require.Equal(t, http.StatusOK, signInResp.StatusCode)

	var credential model.Credential
	decodeData(t, signIn, &credential)

	meResp2, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/users/me", nil, credential.AccessToken)
	assert.Equal(t, http.StatusOK, meResp2.StatusCode)
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	server := newTestServer(t)

	signUp(t, server, "bob@example.com", "password one")

	resp, envelope := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/sign-up",
		model.SignUpRequest{Email: "BOB@example.com", Password: "password two"}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "EMAIL_IN_USE", envelope.Error.Code)
}

func TestSignInWithBadCredentials(t *testing.T) {
	server := newTestServer(t)

	signUp(t, server, "carol@example.com", "right password")

	unknownResp, unknown := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/sign-in",
		model.SignInRequest{Email: "nobody@example.com", Password: "x"}, "")
	wrongResp, wrong := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/sign-in",
		model.SignInRequest{Email: "carol@example.com", Password: "wrong"}, "")

	// Both failure modes look identical from the outside.
	assert.Equal(t, http.StatusUnauthorized, unknownResp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, wrongResp.StatusCode)
	require.NotNil(t, unknown.Error)
	require.NotNil(t, wrong.Error)
	assert.Equal(t, unknown.Error.Code, wrong.Error.Code)
	assert.Equal(t, unknown.Error.Message, wrong.Error.Message)
}

func TestChangePasswordFlow(t *testing.T) {
	server := newTestServer(t)

	accessToken := signUp(t, server, "dave@example.com", "old password")

	wrongResp, wrong := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/change-password",
		model.ChangePasswordRequest{OldPassword: "not it", NewPassword: "new password"}, accessToken)
	assert.Equal(t, http.StatusBadRequest, wrongResp.StatusCode)
	require.NotNil(t, wrong.Error)
	assert.Equal(t, "INCORRECT_PASSWORD", wrong.Error.Code)

	okResp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/change-password",
		model.ChangePasswordRequest{OldPassword: "old password", NewPassword: "new password"}, accessToken)
	require.Equal(t, http.StatusOK, okResp.StatusCode)

	oldResp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/sign-in",
		model.SignInRequest{Email: "dave@example.com", Password: "old password"}, "")
	assert.Equal(t, http.StatusUnauthorized, oldResp.StatusCode)

	newResp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/sign-in",
		model.SignInRequest{Email: "dave@example.com", Password: "new password"}, "")
	assert.Equal(t, http.StatusOK, newResp.StatusCode)

	// The pre-rotation token stays valid: there is no revocation list.
	stillResp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/users/me", nil, accessToken)
	assert.Equal(t, http.StatusOK, stillResp.StatusCode)
}

func TestGuardedRoutesRejectAnonymous(t *testing.T) {
	server := newTestServer(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/applications/"},
		{http.MethodPost, "/api/v1/auth/change-password"},
		{http.MethodGet, "/api/v1/application"},
	} {
		resp, envelope := doJSON(t, route.method, server.URL+route.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, route.path)
		require.NotNil(t, envelope.Error, route.path)
		assert.Equal(t, "UNAUTHORIZED", envelope.Error.Code, route.path)
	}
}

func TestAdminOnlyUserList(t *testing.T) {
	server := newTestServer(t)

	accessToken := signUp(t, server, "erin@example.com", "pw")

	// Regular users are refused by the role policy.
	resp, envelope := doJSON(t, http.MethodGet, server.URL+"/api/v1/users/", nil, accessToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "FORBIDDEN", envelope.Error.Code)
}
