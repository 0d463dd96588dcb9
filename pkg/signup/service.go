package signup

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/notification"
	"github.com/tendant/settle-idm/pkg/utils"
)

const (
	MinPasswordLength = 6
	welcomeTimeout    = 15 * time.Second
)

// SignupService creates accounts for the public registration forms
type SignupService struct {
	users               *credential.Service
	notifier            notification.Notifier
	serverURL           string
	registrationEnabled bool
}

// SignupServiceOption is a functional option for configuring SignupService
type SignupServiceOption func(*SignupService)

// NewSignupService creates a service with registration enabled
func NewSignupService(users *credential.Service, opts ...SignupServiceOption) *SignupService {
	s := &SignupService{users: users, registrationEnabled: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithNotifier sends welcome emails through n; without it none are sent
func WithNotifier(n notification.Notifier) SignupServiceOption {
	return func(s *SignupService) {
		s.notifier = n
	}
}

// WithServerURL sets the link used in welcome emails
func WithServerURL(url string) SignupServiceOption {
	return func(s *SignupService) {
		s.serverURL = strings.TrimRight(url, "/")
	}
}

func WithRegistrationEnabled(enabled bool) SignupServiceOption {
	return func(s *SignupService) {
		s.registrationEnabled = enabled
	}
}

// RegisterUserRequest is the registration form
type RegisterUserRequest struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// RegisterUserResult represents the result of user registration
type RegisterUserResult struct {
	UserID uuid.UUID
	Email  string
	Role   credential.Role
}

// SignupError represents a signup-specific error
type SignupError struct {
	Code    string
	Message string
	Details map[string]string
}

func (e *SignupError) Error() string {
	return e.Message
}

// Error codes
const (
	ErrCodeRegistrationDisabled = "REGISTRATION_DISABLED"
	ErrCodeInvalidRequest       = "INVALID_INPUT"
	ErrCodeEmailExists          = "USER_ALREADY_EXISTS"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

func (s *SignupService) IsRegistrationEnabled() bool {
	return s.registrationEnabled
}

// RegisterCustomer creates a customer account
func (s *SignupService) RegisterCustomer(ctx context.Context, req RegisterUserRequest) (*RegisterUserResult, error) {
	return s.register(ctx, req, credential.RoleCustomer)
}

// RegisterSeller creates a seller account
func (s *SignupService) RegisterSeller(ctx context.Context, req RegisterUserRequest) (*RegisterUserResult, error) {
	return s.register(ctx, req, credential.RoleSeller)
}

func (s *SignupService) register(ctx context.Context, req RegisterUserRequest, role credential.Role) (*RegisterUserResult, error) {
	if !s.registrationEnabled {
		return nil, &SignupError{Code: ErrCodeRegistrationDisabled, Message: "Registration is disabled"}
	}
	if details := Validate(req); len(details) > 0 {
		return nil, &SignupError{
			Code:    ErrCodeInvalidRequest,
			Message: "Please check your registration information and try again",
			Details: details,
		}
	}

	var nu credential.NewUser
	if err := copier.Copy(&nu, &req); err != nil {
		return nil, &SignupError{Code: ErrCodeInternalError, Message: "Failed to register user"}
	}
	nu.Role = role

	u, err := s.users.CreateUser(ctx, nu)
	if err != nil {
		if errors.Is(err, credential.ErrUserExists) {
			return nil, &SignupError{
				Code:    ErrCodeEmailExists,
				Message: "Email already registered. Please use a different email.",
			}
		}
		slog.Error("Failed to create user", "role", role, "error", err)
		return nil, &SignupError{Code: ErrCodeInternalError, Message: "Failed to register user"}
	}

	s.sendWelcome(ctx, u)
	return &RegisterUserResult{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

func (s *SignupService) sendWelcome(ctx context.Context, u credential.User) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), welcomeTimeout)
	defer cancel()

	err := s.notifier.Send(ctx, notification.WelcomeNotice, notification.NotificationData{
		To: u.Email,
		Data: map[string]string{
			"Name":      u.Name,
			"Role":      string(u.Role),
			"ServerURL": s.serverURL,
		},
	})
	if err != nil {
		slog.Warn("Failed to send welcome email", "user_id", u.ID, "error", err)
	}
}

// Validate checks the form and returns a message per invalid field
func Validate(req RegisterUserRequest) map[string]string {
	details := map[string]string{}

	if n := len([]rune(strings.TrimSpace(req.Name))); n < 2 || n > 100 {
		details["name"] = "must be between 2 and 100 characters"
	}
	if addr, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil || addr.Name != "" {
		details["email"] = "must be a valid email address"
	}
	if n := len(utils.DigitsOnly(req.Phone)); n < 10 || n > 15 {
		details["phone"] = "must have between 10 and 15 digits"
	}
	if len(req.Password) < MinPasswordLength {
		details["password"] = "must be at least 6 characters"
	}
	if req.ConfirmPassword != req.Password {
		details["confirm_password"] = "passwords do not match"
	}
	return details
}
