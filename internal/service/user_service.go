package service

import (
	"context"

	"go-app-console/internal/model"
)

// ProfileStore is the persistence contract the user service needs.
type ProfileStore interface {
	UpdateProfile(ctx context.Context, id string, input model.UpdateUserRequest) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type UserService struct {
	users ProfileStore
}

func NewUserService(users ProfileStore) *UserService {
	return &UserService{users: users}
}

// Update edits the caller's own profile fields. Email and role are not
// self-serviceable.
func (s *UserService) Update(ctx context.Context, user model.User, input model.UpdateUserRequest) (model.User, error) {
	return s.users.UpdateProfile(ctx, user.ID, input)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}
