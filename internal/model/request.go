package model

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UpdateUserRequest struct {
	CompanyName   *string `json:"company_name"`
	ContactPerson *string `json:"contact_person"`
}

type CreateApplicationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateApplicationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type InviteUserRequest struct {
	UserID string `json:"user_id"`
}

// ListQuery is the pagination envelope accepted by collection endpoints.
type ListQuery struct {
	Page  int
	Limit int
	Order string
}

func (q ListQuery) Normalized() ListQuery {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Order != "desc" {
		q.Order = "asc"
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
