package credential

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// Role decides where a user lands after login
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrPhoneRequired      = errors.New("a phone number is required for SMS verification")
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return r, nil
	}
	return "", ErrInvalidRole
}

// User is an account holder. PasswordHash is never serialized.
type User struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone,omitempty"`
	PasswordHash     string       `json:"-"`
	Role             Role         `json:"role"`
	TwoFactorEnabled bool         `json:"two_factor_enabled"`
	TwoFactorMethod  twofa.Method `json:"two_factor_method"`
	CreatedAt        time.Time    `json:"created_at"`
}

// TwoFactorPreference returns the stored 2FA setting. An unknown stored method
// reads as email.
func (u User) TwoFactorPreference() twofa.Preference {
	method := u.TwoFactorMethod
	if !method.Valid() {
		method = twofa.MethodEmail
	}
	return twofa.Preference{Enabled: u.TwoFactorEnabled, Method: method}
}

// CreateUserParams holds the normalized fields of a new user
type CreateUserParams struct {
	Name             string
	Email            string
	Phone            string
	PasswordHash     string
	Role             Role
	TwoFactorEnabled bool
	TwoFactorMethod  twofa.Method
}

// NormalizeEmail case-folds and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
