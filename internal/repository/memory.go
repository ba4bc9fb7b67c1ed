package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-app-console/internal/model"
	"go-app-console/pkg/apierror"
)

// MemUserRepository is an in-memory UserStore used by tests and local
// development. It mirrors the collapse semantics of the SQL repository.
type MemUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemUserRepository() *MemUserRepository {
	return &MemUserRepository{users: map[string]model.User{}}
}

func (r *MemUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, apierror.NotFound("user not found", id)
	}
	return u, nil
}

func (r *MemUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if strings.ToLower(u.Email) == key {
			return u, nil
		}
	}
	return model.User{}, apierror.NotFound("user not found", "")
}

func (r *MemUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *MemUserRepository) Create(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	r.users[u.ID] = u
	return nil
}

func (r *MemUserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apierror.NotFound("user not found", id)
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	r.users[id] = u
	return nil
}

func (r *MemUserRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apierror.NotFound("user not found", id)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *MemUserRepository) UpdateProfile(_ context.Context, id string, input model.UpdateUserRequest) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, apierror.NotFound("user not found", id)
	}
	if input.CompanyName != nil {
		u.CompanyName = *input.CompanyName
	}
	if input.ContactPerson != nil {
		u.ContactPerson = *input.ContactPerson
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return u, nil
}

func (r *MemUserRepository) List(_ context.Context) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// MemApplicationRepository is an in-memory ApplicationStore. Missing
// records and records the user is not a member of produce the same
// not-found error, matching the SQL repository.
type MemApplicationRepository struct {
	mu   sync.RWMutex
	apps map[string]model.Application
}

func NewMemApplicationRepository() *MemApplicationRepository {
	return &MemApplicationRepository{apps: map[string]model.Application{}}
}

func (r *MemApplicationRepository) FindByID(_ context.Context, id string) (model.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.apps[id]
	if !ok {
		return model.Application{}, apierror.NotFound("application not found", "")
	}
	return cloneApplication(a), nil
}

func (r *MemApplicationRepository) FindForUser(_ context.Context, id string, userID string) (model.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.apps[id]
	if !ok || !a.HasMember(userID) {
		return model.Application{}, apierror.NotFound("application not found", "")
	}
	return cloneApplication(a), nil
}

func (r *MemApplicationRepository) ListForUser(_ context.Context, userID string, query model.ListQuery) ([]model.Application, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = query.Normalized()

	member := make([]model.Application, 0)
	for _, a := range r.apps {
		if a.HasMember(userID) {
			member = append(member, cloneApplication(a))
		}
	}
	sort.Slice(member, func(i, j int) bool {
		if query.Order == "desc" {
			return member[i].ID > member[j].ID
		}
		return member[i].ID < member[j].ID
	})

	total := len(member)
	start := query.Offset()
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	return member[start:end], total, nil
}

func (r *MemApplicationRepository) Create(_ context.Context, a model.Application, creatorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.UserIDs = []string{creatorID}
	r.apps[a.ID] = a
	return nil
}

func (r *MemApplicationRepository) UpdateForUser(_ context.Context, id string, userID string, input model.UpdateApplicationRequest) (model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.apps[id]
	if !ok || !a.HasMember(userID) {
		return model.Application{}, apierror.NotFound("application not found", "")
	}
	if input.Name != nil {
		a.Name = *input.Name
	}
	if input.Description != nil {
		a.Description = *input.Description
	}
	if input.Status != nil {
		a.Status = *input.Status
	}
	a.UpdatedAt = time.Now().UTC()
	r.apps[id] = a
	return cloneApplication(a), nil
}

func (r *MemApplicationRepository) DeleteForUser(_ context.Context, id string, userID string) (model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.apps[id]
	if !ok || !a.HasMember(userID) {
		return model.Application{}, apierror.NotFound("application not found", "")
	}
	delete(r.apps, id)
	return cloneApplication(a), nil
}

func (r *MemApplicationRepository) AddMember(_ context.Context, applicationID string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.apps[applicationID]
	if !ok {
		return apierror.NotFound("application not found", "")
	}
	if !a.HasMember(userID) {
		a.UserIDs = append(a.UserIDs, userID)
		r.apps[applicationID] = a
	}
	return nil
}

func (r *MemApplicationRepository) UpdateSecret(_ context.Context, id string, secretKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.apps[id]
	if !ok {
		return apierror.NotFound("application not found", "")
	}
	a.SecretKey = secretKey
	a.UpdatedAt = time.Now().UTC()
	r.apps[id] = a
	return nil
}

func cloneApplication(a model.Application) model.Application {
	cloned := a
	cloned.UserIDs = append([]string(nil), a.UserIDs...)
	return cloned
}
