package domain

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is what leaves the server: a user without its password hash.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// MaxPasswordBytes is the longest input bcrypt accepts. The max tag on
// Password counts runes, so multi-byte passwords are checked separately.
const MaxPasswordBytes = 72

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Normalize trims the name and canonicalizes the email.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

func (r *RegisterRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if len(r.Password) > MaxPasswordBytes {
		return NewValidationError("request validation failed", FieldError{
			Field:   "password",
			Message: fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes),
		})
	}
	return rejectNUL(textField{"name", r.Name})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	return validateStruct(r)
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Token     string      `json:"auth_token"`
	ExpiresIn int64       `json:"expires_in"`
	User      *PublicUser `json:"user"`
}

// NormalizeEmail makes emails case-insensitive for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
