package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/twofa"
	"github.com/tendant/settle-idm/pkg/utils"
)

// AdminBootstrapConfig contains configuration for bootstrapping the first admin
type AdminBootstrapConfig struct {
	// Admin user details (from ADMIN_NAME, ADMIN_EMAIL, ADMIN_PASSWORD, ADMIN_PHONE)
	AdminName     string
	AdminEmail    string
	AdminPassword string
	AdminPhone    string

	Users *credential.Service
}

// AdminBootstrapResult contains the result of admin bootstrap operation
type AdminBootstrapResult struct {
	UserID      uuid.UUID
	Email       string
	Password    string // Only populated if auto-generated
	UserCreated bool   // true if user was created, false if skipped

	// Password was provided via environment variable
	PasswordFromEnv bool
}

const generatedPasswordBytes = 18

// BootstrapAdmin creates an admin account for AdminEmail unless a user with
// that email already exists. The admin always has email 2FA enabled.
func BootstrapAdmin(ctx context.Context, cfg AdminBootstrapConfig) (*AdminBootstrapResult, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid bootstrap configuration: %w", err)
	}

	existing, err := cfg.Users.GetUserByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		slog.Info("Admin user already exists - skipping admin bootstrap", "user_id", existing.ID, "role", existing.Role)
		return &AdminBootstrapResult{UserID: existing.ID, Email: existing.Email}, nil
	case !errors.Is(err, credential.ErrUserNotFound):
		return nil, fmt.Errorf("failed to check for admin user: %w", err)
	}

	password := cfg.AdminPassword
	if password == "" {
		password, err = utils.RandomToken(generatedPasswordBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}
	u, err := cfg.Users.CreateUser(ctx, credential.NewUser{
		Name:             name,
		Email:            cfg.AdminEmail,
		Phone:            cfg.AdminPhone,
		Password:         password,
		Role:             credential.RoleAdmin,
		TwoFactorEnabled: true,
		TwoFactorMethod:  twofa.MethodEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	result := &AdminBootstrapResult{
		UserID:          u.ID,
		Email:           u.Email,
		UserCreated:     true,
		PasswordFromEnv: cfg.AdminPassword != "",
	}
	if !result.PasswordFromEnv {
		result.Password = password
	}

	slog.Info("Admin bootstrap completed successfully", "user_id", u.ID)
	return result, nil
}

// validateConfig validates the bootstrap configuration
func validateConfig(cfg AdminBootstrapConfig) error {
	if cfg.Users == nil {
		return errors.New("credential service is required")
	}
	if !strings.Contains(cfg.AdminEmail, "@") {
		return fmt.Errorf("admin email %q is not an email address", cfg.AdminEmail)
	}
	return nil
}
