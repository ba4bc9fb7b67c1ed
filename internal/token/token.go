package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-app-console/internal/model"
)

// Service issues and verifies signed bearer tokens. The payload is stored
// under the "data" claim and is expected to already be envelope-encrypted
// by the caller; this package only handles signing and time bounds.
//
// Tokens are signed with the process-wide secret unless an override is
// supplied, which is how application tokens bind to a per-application
// secret key.
type Service struct {
	secret     []byte
	defaultTTL time.Duration
}

// New builds a token service. A defaultTTL of zero means tokens issued
// without an explicit TTL carry no expiry claim.
func New(secret string, defaultTTL time.Duration) *Service {
	return &Service{secret: []byte(secret), defaultTTL: defaultTTL}
}

type issueOptions struct {
	secret   []byte
	ttl      time.Duration
	noExpiry bool
}

type Option func(*issueOptions)

// WithSecret overrides the signing (or verification) secret.
func WithSecret(secret string) Option {
	return func(o *issueOptions) { o.secret = []byte(secret) }
}

func WithTTL(ttl time.Duration) Option {
	return func(o *issueOptions) { o.ttl = ttl }
}

// WithoutExpiry issues a token with no expiry claim. Used for application
// tokens whose lifetime is bounded by secret-key rotation instead.
func WithoutExpiry() Option {
	return func(o *issueOptions) { o.noExpiry = true }
}

func (s *Service) Issue(payload string, opts ...Option) (string, error) {
	resolved := issueOptions{secret: s.secret, ttl: s.defaultTTL}
	for _, opt := range opts {
		opt(&resolved)
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"data": payload,
		"iat":  now.Unix(),
	}
	if !resolved.noExpiry && resolved.ttl > 0 {
		claims["exp"] = now.Add(resolved.ttl).Unix()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(resolved.secret)
}

// Verify validates the token's signature and expiry and returns the "data"
// payload. Signature mismatch, tampering and expiry all surface as the
// same model.ErrInvalidToken so callers cannot be used as an oracle.
func (s *Service) Verify(tokenString string, opts ...Option) (string, error) {
	resolved := issueOptions{secret: s.secret}
	for _, opt := range opts {
		opt(&resolved)
	}

	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrInvalidToken
		}
		return resolved.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", model.ErrInvalidToken
	}

	return payloadFromClaims(parsed.Claims)
}

// Decode extracts the "data" payload without any signature check. It
// exists solely so the application-key guard can discover which secret to
// verify against; its result must never be trusted for authorization.
func (s *Service) Decode(tokenString string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", model.ErrInvalidToken
	}

	return payloadFromClaims(parsed.Claims)
}

func payloadFromClaims(claims jwt.Claims) (string, error) {
	claimsMap, ok := claims.(jwt.MapClaims)
	if !ok {
		return "", model.ErrInvalidToken
	}

	data, _ := claimsMap["data"].(string)
	if data == "" {
		return "", model.ErrInvalidToken
	}

	return data, nil
}
