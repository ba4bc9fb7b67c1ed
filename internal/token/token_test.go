package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-app-console/internal/model"
)

func TestService_IssueVerifyRoundTrip(t *testing.T) {
	svc := New("process-secret", time.Hour)

	issued, err := svc.Issue("encrypted-payload")
	require.NoError(t, err)

	payload, err := svc.Verify(issued)
	require.NoError(t, err)
	assert.Equal(t, "encrypted-payload", payload)
}

func TestService_VerifyWrongSecretFails(t *testing.T) {
	svc := New("process-secret", time.Hour)

	issued, err := svc.Issue("payload")
	require.NoError(t, err)

	_, err = svc.Verify(issued, WithSecret("some-other-secret"))
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestService_PerSubjectSecret(t *testing.T) {
	svc := New("process-secret", time.Hour)

	issued, err := svc.Issue("payload", WithSecret("application-secret"))
	require.NoError(t, err)

	// The process-wide default must not verify a per-subject token.
	_, err = svc.Verify(issued)
	assert.ErrorIs(t, err, model.ErrInvalidToken)

	payload, err := svc.Verify(issued, WithSecret("application-secret"))
	require.NoError(t, err)
	assert.Equal(t, "payload", payload)
}

func TestService_ExpiredTokenFails(t *testing.T) {
	svc := New("process-secret", time.Hour)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"data": "payload",
		"iat":  time.Now().Add(-2 * time.Hour).Unix(),
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("process-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(expired)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestService_WithoutExpiry(t *testing.T) {
	svc := New("process-secret", time.Nanosecond)

	issued, err := svc.Issue("payload", WithoutExpiry())
	require.NoError(t, err)

	// Even with a tiny default TTL configured, the token carries no
	// expiry claim and stays verifiable.
	time.Sleep(5 * time.Millisecond)
	payload, err := svc.Verify(issued)
	require.NoError(t, err)
	assert.Equal(t, "payload", payload)

	parsed, _, err := jwt.NewParser().ParseUnverified(issued, jwt.MapClaims{})
	require.NoError(t, err)
	_, hasExp := parsed.Claims.(jwt.MapClaims)["exp"]
	assert.False(t, hasExp)
}

func TestService_ZeroDefaultTTLMeansNoExpiry(t *testing.T) {
	svc := New("process-secret", 0)

	issued, err := svc.Issue("payload")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(issued, jwt.MapClaims{})
	require.NoError(t, err)
	_, hasExp := parsed.Claims.(jwt.MapClaims)["exp"]
	assert.False(t, hasExp)
}

func TestService_DecodeSkipsSignatureCheck(t *testing.T) {
	issuer := New("secret-known-only-to-issuer", time.Hour)
	reader := New("completely-different-secret", time.Hour)

	issued, err := issuer.Issue("payload")
	require.NoError(t, err)

	// Decode extracts the payload without the secret; Verify with the
	// wrong secret still fails.
	payload, err := reader.Decode(issued)
	require.NoError(t, err)
	assert.Equal(t, "payload", payload)

	_, err = reader.Verify(issued)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestService_MalformedTokens(t *testing.T) {
	svc := New("process-secret", time.Hour)

	for _, bad := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := svc.Verify(bad)
		assert.ErrorIs(t, err, model.ErrInvalidToken)

		_, err = svc.Decode(bad)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	}
}

func TestService_RejectsNonHMACAlgorithm(t *testing.T) {
	svc := New("process-secret", time.Hour)

	// alg=none token with a "data" claim.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"data": "payload"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}
