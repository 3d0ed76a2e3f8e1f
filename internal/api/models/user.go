package models

import "strings"

// UserRole is the authorization role of a user.
type UserRole string

const (
	RoleAdmin UserRole = "Admin"
	RoleUser  UserRole = "User"
)

const UsersCollection = "users"

// User represents a user in the database.
type User struct {
	Base      `bson:",inline"`
	Username  string   `bson:"username" json:"username"`
	Password  string   `bson:"password" json:"password"`
	Role      UserRole `bson:"role" json:"role"`
	FirstName string   `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName  string   `bson:"lastName,omitempty" json:"lastName,omitempty"`
}

// FullName is derived from the first and last name and never stored.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserVm is the externally visible user. It has no credential fields.
type UserVm struct {
	BaseVm
	Username  string   `json:"username"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	FullName  string   `json:"fullName,omitempty"`
	Role      UserRole `json:"role"`
}

// RegisterRequest defines the structure for a user registration request.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=6,max=50"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

// LoginRequest defines the structure for a user login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse defines the structure for a successful login response.
type LoginResponse struct {
	Token string `json:"token"`
	User  UserVm `json:"user"`
}

// UpdateUserRequest changes a user's profile. Only admins may set Role.
type UpdateUserRequest struct {
	FirstName *string  `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string  `json:"lastName" validate:"omitempty,max=100"`
	Role      UserRole `json:"role" validate:"omitempty,oneof=Admin User"`
}
