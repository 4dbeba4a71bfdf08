// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxNameLen  = 64
	MaxEmailLen = 254
)

var (
	ErrNameEmpty   = errors.New("name empty")
	ErrNameTooLong = errors.New("name too long")
	ErrBadEmail    = errors.New("invalid email")
)

type UserID string

type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in handlers.
func NewUser(name, email string) (*User, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	if len(email) == 0 || len(email) > MaxEmailLen {
		return nil, ErrBadEmail
	}
	return &User{ID: UserID(uuid.NewString()), Name: name, Email: email}, nil
}

// DisplayName falls back to the email for accounts created before names
// were required.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
