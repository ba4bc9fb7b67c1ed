package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-app-console/internal/crypto"
	"go-app-console/internal/model"
	"go-app-console/internal/token"
	"go-app-console/pkg/apierror"
)

const bcryptCost = 12

// UserStore is the persistence contract the auth service needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u model.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}

type AuthService struct {
	users  UserStore
	tokens *token.Service
	cipher *crypto.Cipher
}

func NewAuthService(users UserStore, tokens *token.Service, cipher *crypto.Cipher) *AuthService {
	return &AuthService{users: users, tokens: tokens, cipher: cipher}
}

// SignIn authenticates a user by email and password. Unknown email and
// wrong password are deliberately indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email string, password string) (model.Credential, error) {
	invalid := apierror.New("INVALID_CREDENTIALS", "wrong email or password", "", http.StatusUnauthorized)

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return model.Credential{}, invalid
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return model.Credential{}, invalid
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return model.Credential{}, err
	}

	return s.issueUserCredential(user.ID)
}

func (s *AuthService) SignUp(ctx context.Context, input model.SignUpRequest) (model.Credential, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return model.Credential{}, apierror.BadRequest("email and password are required", "")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return model.Credential{}, err
	}
	if exists {
		return model.Credential{}, apierror.New("EMAIL_IN_USE", "email already used", "", http.StatusConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return model.Credential{}, err
	}

	now := time.Now().UTC()
	user := model.User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  string(hash),
		Role:          model.RoleUser,
		CompanyName:   strings.TrimSpace(input.CompanyName),
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		LastLoginAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.Credential{}, err
	}

	return s.issueUserCredential(user.ID)
}

// ChangePassword replaces the stored hash after verifying the old
// password. Outstanding user tokens stay valid: there is no per-token
// revocation list.
func (s *AuthService) ChangePassword(ctx context.Context, user model.User, oldPassword string, newPassword string) error {
	if newPassword == "" {
		return apierror.BadRequest("new password is required", "")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return apierror.New("INCORRECT_PASSWORD", "password is incorrect", "", http.StatusBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

// AuthenticateToken resolves a bearer token to a user record: verify the
// signature against the process-wide secret, decrypt the envelope, check
// the subject type, then load the user.
func (s *AuthService) AuthenticateToken(ctx context.Context, tokenString string) (model.User, error) {
	payload, err := s.tokens.Verify(tokenString)
	if err != nil {
		return model.User{}, apierror.Unauthorized("invalid credential")
	}

	subject, err := s.decryptSubject(payload)
	if err != nil || subject.Type != model.SubjectTypeUser || subject.ID == "" {
		return model.User{}, apierror.Unauthorized("invalid credential")
	}

	user, err := s.users.FindByID(ctx, subject.ID)
	if err != nil {
		return model.User{}, apierror.Unauthorized("invalid credential")
	}

	return user, nil
}

func (s *AuthService) issueUserCredential(userID string) (model.Credential, error) {
	payload, err := json.Marshal(model.TokenSubject{ID: userID, Type: model.SubjectTypeUser})
	if err != nil {
		return model.Credential{}, err
	}

	encrypted, err := s.cipher.Encrypt(payload)
	if err != nil {
		return model.Credential{}, err
	}

	accessToken, err := s.tokens.Issue(encrypted)
	if err != nil {
		return model.Credential{}, err
	}

	return model.Credential{AccessToken: accessToken}, nil
}

func (s *AuthService) decryptSubject(payload string) (model.TokenSubject, error) {
	plaintext, err := s.cipher.Decrypt(payload)
	if err != nil {
		return model.TokenSubject{}, err
	}

	var subject model.TokenSubject
	if err := json.Unmarshal(plaintext, &subject); err != nil {
		return model.TokenSubject{}, err
	}
	return subject, nil
}
