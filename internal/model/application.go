package model

import "time"

const (
	ApplicationStatusActive   = "active"
	ApplicationStatusInactive = "inactive"
)

type Application struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	SecretKey   string    `json:"-"`
	UserIDs     []string  `json:"user_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasMember reports whether the given user belongs to the application's
// authorized-user set.
func (a Application) HasMember(userID string) bool {
	for _, id := range a.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
