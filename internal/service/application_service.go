package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-app-console/internal/crypto"
	"go-app-console/internal/model"
	"go-app-console/internal/token"
	"go-app-console/pkg/apierror"
)

// ApplicationStore is the persistence contract the application service
// needs. The *ForUser variants are membership-scoped and collapse "does
// not exist" and "not a member" into the same not-found error.
type ApplicationStore interface {
	FindByID(ctx context.Context, id string) (model.Application, error)
	FindForUser(ctx context.Context, id string, userID string) (model.Application, error)
	ListForUser(ctx context.Context, userID string, query model.ListQuery) ([]model.Application, int, error)
	Create(ctx context.Context, a model.Application, creatorID string) error
	UpdateForUser(ctx context.Context, id string, userID string, input model.UpdateApplicationRequest) (model.Application, error)
	DeleteForUser(ctx context.Context, id string, userID string) (model.Application, error)
	AddMember(ctx context.Context, applicationID string, userID string) error
	UpdateSecret(ctx context.Context, id string, secretKey string) error
}

type ApplicationService struct {
	apps      ApplicationStore
	tokens    *token.Service
	cipher    *crypto.Cipher
	keyPrefix string
}

func NewApplicationService(apps ApplicationStore, tokens *token.Service, cipher *crypto.Cipher, keyPrefix string) *ApplicationService {
	if keyPrefix == "" {
		keyPrefix = "ak"
	}
	return &ApplicationService{apps: apps, tokens: tokens, cipher: cipher, keyPrefix: keyPrefix}
}

func (s *ApplicationService) FindAll(ctx context.Context, user model.User, query model.ListQuery) ([]model.Application, int, error) {
	return s.apps.ListForUser(ctx, user.ID, query)
}

func (s *ApplicationService) FindByID(ctx context.Context, user model.User, id string) (model.Application, error) {
	return s.apps.FindForUser(ctx, id, user.ID)
}

func (s *ApplicationService) Create(ctx context.Context, user model.User, input model.CreateApplicationRequest) (model.Application, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.Application{}, apierror.BadRequest("name is required", "name")
	}

	now := time.Now().UTC()
	app := model.Application{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      model.ApplicationStatusActive,
		SecretKey:   s.generateSecretKey(),
		UserIDs:     []string{user.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.apps.Create(ctx, app, user.ID); err != nil {
		return model.Application{}, err
	}
	return app, nil
}

func (s *ApplicationService) Update(ctx context.Context, user model.User, id string, input model.UpdateApplicationRequest) (model.Application, error) {
	if input.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*input.Status))
		if status != model.ApplicationStatusActive && status != model.ApplicationStatusInactive {
			return model.Application{}, apierror.BadRequest("invalid status", status)
		}
		input.Status = &status
	}

	return s.apps.UpdateForUser(ctx, id, user.ID, input)
}

func (s *ApplicationService) Delete(ctx context.Context, user model.User, id string) (model.Application, error) {
	return s.apps.DeleteForUser(ctx, id, user.ID)
}

// InviteUser appends a user to the application's authorized-user set.
// Inviting a user that is already a member is a no-op.
func (s *ApplicationService) InviteUser(ctx context.Context, user model.User, applicationID string, invitedUserID string) (model.Application, error) {
	invitedUserID = strings.TrimSpace(invitedUserID)
	if invitedUserID == "" {
		return model.Application{}, apierror.BadRequest("user_id is required", "user_id")
	}

	// Membership check happens first so a non-member cannot grow the set.
	if _, err := s.apps.FindForUser(ctx, applicationID, user.ID); err != nil {
		return model.Application{}, err
	}

	if err := s.apps.AddMember(ctx, applicationID, invitedUserID); err != nil {
		return model.Application{}, err
	}

	return s.apps.FindForUser(ctx, applicationID, user.ID)
}

// GetAPIKey issues a non-expiring application token signed with the
// application's current secret key. Only members may obtain it.
func (s *ApplicationService) GetAPIKey(ctx context.Context, user model.User, applicationID string) (string, error) {
	app, err := s.apps.FindForUser(ctx, applicationID, user.ID)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(model.TokenSubject{
		ApplicationID: app.ID,
		Type:          model.SubjectTypeApplication,
	})
	if err != nil {
		return "", err
	}

	encrypted, err := s.cipher.Encrypt(payload)
	if err != nil {
		return "", err
	}

	return s.tokens.Issue(encrypted, token.WithSecret(app.SecretKey), token.WithoutExpiry())
}

// RefreshAPIKey rotates the application's secret key. Every token signed
// under the old key stops verifying immediately; this is the only
// revocation mechanism and it is all-or-nothing per application.
func (s *ApplicationService) RefreshAPIKey(ctx context.Context, user model.User, applicationID string) error {
	app, err := s.apps.FindForUser(ctx, applicationID, user.ID)
	if err != nil {
		return err
	}

	return s.apps.UpdateSecret(ctx, app.ID, s.generateSecretKey())
}

// VerifyAPIKey resolves an application token. The unverified decode and
// the envelope decryption only locate the application whose secret must
// be checked; the final signature verification against that secret is
// the sole trust boundary. Every failure collapses to UNAUTHORIZED.
func (s *ApplicationService) VerifyAPIKey(ctx context.Context, tokenString string) (model.Application, error) {
	unauthorized := apierror.Unauthorized("invalid credential")

	payload, err := s.tokens.Decode(tokenString)
	if err != nil {
		return model.Application{}, unauthorized
	}

	plaintext, err := s.cipher.Decrypt(payload)
	if err != nil {
		return model.Application{}, unauthorized
	}

	var subject model.TokenSubject
	if err := json.Unmarshal(plaintext, &subject); err != nil {
		return model.Application{}, unauthorized
	}
	if subject.Type != model.SubjectTypeApplication || subject.ApplicationID == "" {
		return model.Application{}, unauthorized
	}

	app, err := s.apps.FindByID(ctx, subject.ApplicationID)
	if err != nil {
		return model.Application{}, unauthorized
	}
	if app.Status != model.ApplicationStatusActive {
		return model.Application{}, unauthorized
	}

	if _, err := s.tokens.Verify(tokenString, token.WithSecret(app.SecretKey)); err != nil {
		return model.Application{}, unauthorized
	}

	// The live secret never travels past the guard.
	app.SecretKey = ""
	return app, nil
}

func (s *ApplicationService) generateSecretKey() string {
	suffix := make([]byte, 24)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s_%d_%s", s.keyPrefix, time.Now().UnixNano(), hex.EncodeToString(suffix))
}
