package users

import "time"

// Roles stored in users.role.
const (
	RoleAdmin = "ADMIN"
	RoleAgent = "AGENT"
	RoleUser  = "USER"
)

// User is the public view of a users row.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	LastLoginAt time.Time `json:"last_login_at,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateUserRequest is the input for Create.
type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// UpdateRoleRequest is the body for PUT /admin/users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}
