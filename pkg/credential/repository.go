package credential

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// Repository defines the storage operations of the credential store.
// Lookups return ErrUserNotFound when nothing matches.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateTwoFactorPreference(ctx context.Context, id uuid.UUID, pref twofa.Preference) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}
