package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of privilege levels an account can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName,omitempty"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,username"`
	FullName string `json:"fullName" binding:"omitempty,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// All fields optional, nil means "leave as is".
type UpdateRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Username *string `json:"username" binding:"omitempty,username"`
	FullName *string `json:"fullName" binding:"omitempty,max=100"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
	IsActive *bool   `json:"isActive"`
}

// AdminUpdateRequest additionally lets an admin move an account
// between roles.
type AdminUpdateRequest struct {
	UpdateRequest
	Role *Role `json:"role" binding:"omitempty,oneof=user admin"`
}

// UpdateParams is the storage-level change set. The handler layer resolves
// DTOs into it (hashing any new password) so stores never see plaintext.
type UpdateParams struct {
	Email        *string
	Username     *string
	FullName     *string
	PasswordHash *string
	Role         *Role
	IsActive     *bool
}

type ListFilter struct {
	Limit  int
	Offset int
}

// NewFromRegisterRequest builds a User from the signup DTO. The caller
// hashes the password; the plaintext never reaches this package.
func NewFromRegisterRequest(req RegisterRequest, passwordHash string) User {
	now := time.Now()

	return User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
