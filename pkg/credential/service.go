package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/twofa"
	"github.com/tendant/settle-idm/pkg/utils"
)

// Service is the credential store: identity lookup, password checks and the
// per-user 2FA preference.
type Service struct {
	repo        Repository
	hasher      PasswordHasher
	countryCode string
	dummyHash   string
}

// Option configures a Service
type Option func(*Service)

// WithHasher replaces the default MultiHasher
func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithCountryCode sets the code stripped from stored phone numbers
func WithCountryCode(cc string) Option {
	return func(s *Service) {
		s.countryCode = cc
	}
}

// NewService creates a credential Service
func NewService(repo Repository, opts ...Option) (*Service, error) {
	s := &Service{
		repo:        repo,
		hasher:      NewMultiHasher(0),
		countryCode: utils.DefaultCountryCode,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Compared against when the email is unknown so both paths cost one hash check.
	dummy, err := s.hasher.Hash("settle-space-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

// NewUser holds the plaintext input of a new account
type NewUser struct {
	Name             string
	Email            string
	Phone            string
	Password         string
	Role             Role
	TwoFactorEnabled bool
	TwoFactorMethod  twofa.Method
}

// CreateUser validates, hashes and stores a new user
func (s *Service) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	email := NormalizeEmail(nu.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("invalid email address")
	}
	if nu.Password == "" {
		return User{}, fmt.Errorf("password cannot be empty")
	}
	role := nu.Role
	if role == "" {
		role = RoleCustomer
	}
	if _, err := ParseRole(string(role)); err != nil {
		return User{}, err
	}
	method := nu.TwoFactorMethod
	if method == "" {
		method = twofa.MethodEmail
	}
	if !method.Valid() {
		return User{}, twofa.ErrInvalidMethod
	}
	phone := utils.NationalNumber(nu.Phone, s.countryCode)
	if nu.TwoFactorEnabled && method == twofa.MethodSMS && phone == "" {
		return User{}, ErrPhoneRequired
	}

	hash, err := s.hasher.Hash(nu.Password)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, CreateUserParams{
		Name:             strings.TrimSpace(nu.Name),
		Email:            email,
		Phone:            phone,
		PasswordHash:     hash,
		Role:             role,
		TwoFactorEnabled: nu.TwoFactorEnabled,
		TwoFactorMethod:  method,
	})
	if err != nil {
		return User{}, err
	}
	slog.Info("User created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Authenticate returns the user owning email if password matches.
// Every failure is ErrInvalidCredentials, whether or not the email exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return User{}, fmt.Errorf("failed to look up user: %w", err)
		}
		_, _ = s.hasher.Verify(password, s.dummyHash)
		return User{}, ErrInvalidCredentials
	}

	if !s.VerifyPassword(u, password) {
		return User{}, ErrInvalidCredentials
	}

	s.rehashIfNeeded(ctx, u, password)
	return u, nil
}

// VerifyPassword reports whether plaintext matches the user's stored hash
func (s *Service) VerifyPassword(u User, plaintext string) bool {
	if plaintext == "" || u.PasswordHash == "" {
		return false
	}
	ok, err := s.hasher.Verify(plaintext, u.PasswordHash)
	if err != nil {
		slog.Warn("Password hash could not be verified", "user_id", u.ID, "error", err)
		return false
	}
	return ok
}

func (s *Service) rehashIfNeeded(ctx context.Context, u User, plaintext string) {
	r, ok := s.hasher.(interface{ NeedsRehash(string) bool })
	if !ok || !r.NeedsRehash(u.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		slog.Error("Failed to rehash password", "user_id", u.ID, "error", err)
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		slog.Error("Failed to store rehashed password", "user_id", u.ID, "error", err)
		return
	}
	slog.Info("Password rehashed", "user_id", u.ID)
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// GetUserByEmail returns a user by email, case-insensitively
func (s *Service) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
}

// GetTwoFactorPreference returns the stored 2FA setting of a user
func (s *Service) GetTwoFactorPreference(ctx context.Context, id uuid.UUID) (twofa.Preference, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return twofa.Preference{}, err
	}
	return u.TwoFactorPreference(), nil
}

// SetTwoFactorPreference stores a new 2FA setting. SMS needs a phone on record.
func (s *Service) SetTwoFactorPreference(ctx context.Context, id uuid.UUID, pref twofa.Preference) error {
	if !pref.Method.Valid() {
		return twofa.ErrInvalidMethod
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if pref.Enabled && pref.Method == twofa.MethodSMS && u.Phone == "" {
		return ErrPhoneRequired
	}
	if err := s.repo.UpdateTwoFactorPreference(ctx, id, pref); err != nil {
		return err
	}
	slog.Info("2FA preference updated", "user_id", id, "enabled", pref.Enabled, "method", pref.Method)
	return nil
}

// DeleteUser removes a user and, through the store, their OTP codes
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	slog.Info("User deleted", "user_id", id)
	return nil
}
