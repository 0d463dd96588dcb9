package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/settle-idm/pkg/twofa"
	"golang.org/x/crypto/bcrypt"
)

func setupTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	svc, err := NewService(repo, WithHasher(NewMultiHasher(bcrypt.MinCost)))
	require.NoError(t, err)
	return svc, repo
}

func TestService_CreateUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	u, err := svc.CreateUser(ctx, NewUser{
		Name:     " Priya ",
		Email:    "Priya@Example.COM ",
		Phone:    "+91 98765-43210",
		Password: "secret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "Priya", u.Name)
	assert.Equal(t, "priya@example.com", u.Email)
	assert.Equal(t, "9876543210", u.Phone)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.Equal(t, twofa.DefaultPreference(), u.TwoFactorPreference())
	assert.NotEqual(t, "secret-pass", u.PasswordHash)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, NewUser{Email: "PRIYA@example.com", Password: "x"})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("sms without phone", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, NewUser{
			Email:            "nophone@example.com",
			Password:         "x",
			TwoFactorEnabled: true,
			TwoFactorMethod:  twofa.MethodSMS,
		})
		assert.ErrorIs(t, err, ErrPhoneRequired)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, NewUser{Email: "r@example.com", Password: "x", Role: "root"})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	created, err := svc.CreateUser(ctx, NewUser{Email: "seller@example.com", Password: "secret-pass", Role: RoleSeller})
	require.NoError(t, err)

	t.Run("correct password any case", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "SELLER@example.com", "secret-pass")
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
		assert.Equal(t, RoleSeller, u.Role)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, errWrong := svc.Authenticate(ctx, "seller@example.com", "nope")
		_, errUnknown := svc.Authenticate(ctx, "ghost@example.com", "nope")
		assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "seller@example.com", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_AuthenticateRehashesLegacyHash(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupTestService(t)

	legacy, err := repo.CreateUser(ctx, CreateUserParams{
		Email:           "legacy@example.com",
		PasswordHash:    werkzeugPBKDF2,
		Role:            RoleCustomer,
		TwoFactorMethod: twofa.MethodEmail,
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "legacy@example.com", "secret-pass")
	require.NoError(t, err)

	stored, err := repo.GetUserByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "$2a$")

	_, err = svc.Authenticate(ctx, "legacy@example.com", "secret-pass")
	assert.NoError(t, err)
}

func TestService_TwoFactorPreference(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	withPhone, err := svc.CreateUser(ctx, NewUser{Email: "a@example.com", Password: "x", Phone: "9876543210"})
	require.NoError(t, err)
	noPhone, err := svc.CreateUser(ctx, NewUser{Email: "b@example.com", Password: "x"})
	require.NoError(t, err)

	pref, err := svc.GetTwoFactorPreference(ctx, withPhone.ID)
	require.NoError(t, err)
	assert.False(t, pref.Enabled)

	require.NoError(t, svc.SetTwoFactorPreference(ctx, withPhone.ID, twofa.Preference{Enabled: true, Method: twofa.MethodSMS}))
	pref, err = svc.GetTwoFactorPreference(ctx, withPhone.ID)
	require.NoError(t, err)
	assert.Equal(t, twofa.Preference{Enabled: true, Method: twofa.MethodSMS}, pref)

	err = svc.SetTwoFactorPreference(ctx, noPhone.ID, twofa.Preference{Enabled: true, Method: twofa.MethodSMS})
	assert.ErrorIs(t, err, ErrPhoneRequired)

	err = svc.SetTwoFactorPreference(ctx, noPhone.ID, twofa.Preference{Enabled: true, Method: "totp"})
	assert.ErrorIs(t, err, twofa.ErrInvalidMethod)
}

func TestService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	u, err := svc.CreateUser(ctx, NewUser{Email: "gone@example.com", Password: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, u.ID))
	_, err = svc.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, u.ID), ErrUserNotFound)

	_, err = svc.CreateUser(ctx, NewUser{Email: "gone@example.com", Password: "x"})
	assert.NoError(t, err)
}
