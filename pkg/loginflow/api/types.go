package api

import (
	"time"

	"github.com/tendant/settle-idm/pkg/twofa"
)

const (
	StatusAuthenticated = "authenticated"
	StatusTwoFARequired = "2fa_required"
	StatusLoggedOut     = "logged_out"
)

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	Next       string `json:"next,omitempty"`
}

type VerifyRequest struct {
	Code string `json:"code"`
}

type SwitchRequest struct {
	Method string `json:"method"`
}

// LoginResponse is returned by every step of the login flow
type LoginResponse struct {
	Status           string         `json:"status"`
	Redirect         string         `json:"redirect,omitempty"`
	Method           twofa.Method   `json:"method,omitempty"`
	Destination      string         `json:"destination,omitempty"`
	AvailableMethods []twofa.Method `json:"available_methods,omitempty"`
	AttemptsLeft     *int           `json:"attempts_left,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
}

type MeResponse struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone,omitempty"`
	Role             string       `json:"role"`
	TwoFactorEnabled bool         `json:"two_factor_enabled"`
	TwoFactorMethod  twofa.Method `json:"two_factor_method"`
}
