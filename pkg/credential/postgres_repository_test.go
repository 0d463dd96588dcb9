package credential

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/settle-idm/pkg/db/dbtest"
	"github.com/tendant/settle-idm/pkg/twofa"
)

func TestPostgresRepository(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, CreateUserParams{
		Name:            "Arjun",
		Email:           "arjun@example.com",
		PasswordHash:    "$2a$04$placeholder",
		Role:            RoleAdmin,
		TwoFactorMethod: twofa.MethodEmail,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Empty(t, u.Phone)
	assert.False(t, u.CreatedAt.IsZero())

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, CreateUserParams{
			Email:           "arjun@example.com",
			PasswordHash:    "x",
			Role:            RoleCustomer,
			TwoFactorMethod: twofa.MethodEmail,
		})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("lookups", func(t *testing.T) {
		byEmail, err := repo.GetUserByEmail(ctx, "arjun@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, RoleAdmin, byEmail.Role)

		_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.GetUserByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("preference and hash updates", func(t *testing.T) {
		require.NoError(t, repo.UpdateTwoFactorPreference(ctx, u.ID, twofa.Preference{Enabled: true, Method: twofa.MethodSMS}))
		require.NoError(t, repo.UpdatePasswordHash(ctx, u.ID, "$2a$04$other"))

		got, err := repo.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.TwoFactorEnabled)
		assert.Equal(t, twofa.MethodSMS, got.TwoFactorMethod)
		assert.Equal(t, "$2a$04$other", got.PasswordHash)

		assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, uuid.New(), "x"), ErrUserNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUser(ctx, u.ID))
		assert.ErrorIs(t, repo.DeleteUser(ctx, u.ID), ErrUserNotFound)
	})
}
