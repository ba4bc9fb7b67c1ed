package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-app-console/internal/crypto"
	"go-app-console/internal/model"
	"go-app-console/internal/repository"
	"go-app-console/internal/token"
	"go-app-console/pkg/apierror"
)

func newAuthService(t *testing.T) (*AuthService, *repository.MemUserRepository) {
	t.Helper()

	cipher, err := crypto.NewCipher("test-envelope-secret")
	require.NoError(t, err)

	users := repository.NewMemUserRepository()
	return NewAuthService(users, token.New("test-jwt-secret", time.Hour), cipher), users
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	signUp, err := svc.SignUp(ctx, model.SignUpRequest{
		Email:         "Alice@Example.com",
		Password:      "correct horse",
		CompanyName:   "Acme",
		ContactPerson: "Alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, signUp.AccessToken)

	// A fresh sign-up token resolves back to the new user.
	user, err := svc.AuthenticateToken(ctx, signUp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotNil(t, user.LastLoginAt)

	// Email lookup is case-insensitive on sign-in.
	signIn, err := svc.SignIn(ctx, "ALICE@example.COM", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, signIn.AccessToken)

	same, err := svc.AuthenticateToken(ctx, signIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, same.ID)
}

func TestAuthService_SignUpDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, model.SignUpRequest{Email: "bob@example.com", Password: "pw-one"})
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, model.SignUpRequest{Email: "BOB@EXAMPLE.COM", Password: "completely different"})
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "EMAIL_IN_USE", apiErr.Code)
}

func TestAuthService_SignInFailuresAreCollapsed(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, model.SignUpRequest{Email: "carol@example.com", Password: "right password"})
	require.NoError(t, err)

	_, unknownErr := svc.SignIn(ctx, "nobody@example.com", "whatever")
	_, wrongPwErr := svc.SignIn(ctx, "carol@example.com", "wrong password")

	// Unknown email and wrong password must be indistinguishable.
	var unknownAPI, wrongAPI *apierror.APIError
	require.True(t, errors.As(unknownErr, &unknownAPI))
	require.True(t, errors.As(wrongPwErr, &wrongAPI))
	assert.Equal(t, "INVALID_CREDENTIALS", unknownAPI.Code)
	assert.Equal(t, unknownAPI.Code, wrongAPI.Code)
	assert.Equal(t, unknownAPI.Message, wrongAPI.Message)
	assert.Equal(t, unknownAPI.HTTPStatus, wrongAPI.HTTPStatus)
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, model.SignUpRequest{Email: "dave@example.com", Password: "old password"})
	require.NoError(t, err)
	user, err := users.FindByEmail(ctx, "dave@example.com")
	require.NoError(t, err)
	originalHash := user.PasswordHash

	t.Run("wrong old password leaves hash unchanged", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user, "not the old password", "new password")
		var apiErr *apierror.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "INCORRECT_PASSWORD", apiErr.Code)

		unchanged, err := users.FindByEmail(ctx, "dave@example.com")
		require.NoError(t, err)
		assert.Equal(t, originalHash, unchanged.PasswordHash)
	})

	t.Run("correct old password rotates the hash", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, user, "old password", "new password"))

		_, err := svc.SignIn(ctx, "dave@example.com", "new password")
		assert.NoError(t, err)

		_, err = svc.SignIn(ctx, "dave@example.com", "old password")
		assert.Error(t, err)
	})
}

func TestAuthService_AuthenticateToken(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	credential, err := svc.SignUp(ctx, model.SignUpRequest{Email: "erin@example.com", Password: "pw"})
	require.NoError(t, err)

	t.Run("garbage token fails", func(t *testing.T) {
		_, err := svc.AuthenticateToken(ctx, "not-a-token")
		assert.Error(t, err)
	})

	t.Run("token signed with another secret fails", func(t *testing.T) {
		other := token.New("attacker-secret", time.Hour)
		forged, err := other.Issue("whatever")
		require.NoError(t, err)

		_, err = svc.AuthenticateToken(ctx, forged)
		assert.Error(t, err)
	})

	t.Run("deleted subject fails", func(t *testing.T) {
		// Simulate the user disappearing between issuance and use.
		cipher, err := crypto.NewCipher("test-envelope-secret")
		require.NoError(t, err)
		emptySvc := NewAuthService(repository.NewMemUserRepository(), token.New("test-jwt-secret", time.Hour), cipher)

		_, err = emptySvc.AuthenticateToken(ctx, credential.AccessToken)
		assert.Error(t, err)
	})
}
