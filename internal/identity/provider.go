// Package identity abstracts where passwords live: locally as bcrypt hashes,
// or in a hosted GoTrue auth server.
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrLoginTaken         = errors.New("login already registered")
	ErrNotFound           = errors.New("identity not found")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)

// MaxPasswordBytes is the bcrypt input limit. Longer passwords are refused
// rather than silently truncated.
const MaxPasswordBytes = 72

type NewUser struct {
	Login    string
	Password string
	Metadata map[string]string
}

type Provider interface {
	CreateUser(ctx context.Context, u NewUser) (string, error)
	DeleteUser(ctx context.Context, id string) error
	VerifyPassword(ctx context.Context, login, password string) (string, error)
	UpdatePassword(ctx context.Context, id, password string) error
	UpdateLogin(ctx context.Context, id, login string) error
}

// LoginFor is the provider login of a user: the email when present,
// otherwise a synthetic address derived from the username.
func LoginFor(username string, email *string) string {
	if email != nil && strings.TrimSpace(*email) != "" {
		return strings.ToLower(strings.TrimSpace(*email))
	}
	return strings.ToLower(username) + "@temp.local"
}
