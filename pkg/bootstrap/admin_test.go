package bootstrap

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/twofa"
	"golang.org/x/crypto/bcrypt"
)

func newUsers(t *testing.T) *credential.Service {
	t.Helper()
	users, err := credential.NewService(credential.NewMemoryRepository(),
		credential.WithHasher(credential.NewMultiHasher(bcrypt.MinCost)))
	require.NoError(t, err)
	return users
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)

	res, err := BootstrapAdmin(ctx, AdminBootstrapConfig{AdminEmail: "root@settle.space", Users: users})
	require.NoError(t, err)
	require.True(t, res.UserCreated)
	assert.False(t, res.PasswordFromEnv)
	assert.NotEmpty(t, res.Password)

	u, err := users.Authenticate(ctx, "root@settle.space", res.Password)
	require.NoError(t, err)
	assert.Equal(t, credential.RoleAdmin, u.Role)
	assert.True(t, u.TwoFactorEnabled)
	assert.Equal(t, twofa.MethodEmail, u.TwoFactorMethod)

	var out bytes.Buffer
	PrintBootstrapResult(&out, res)
	assert.Contains(t, out.String(), res.Password)

	t.Run("second run skips", func(t *testing.T) {
		again, err := BootstrapAdmin(ctx, AdminBootstrapConfig{AdminEmail: "root@settle.space", Users: users})
		require.NoError(t, err)
		assert.False(t, again.UserCreated)
		assert.Equal(t, u.ID, again.UserID)

		var out bytes.Buffer
		PrintBootstrapResult(&out, again)
		assert.Empty(t, out.String())
	})
}

func TestBootstrapAdmin_PasswordFromEnv(t *testing.T) {
	res, err := BootstrapAdmin(context.Background(), AdminBootstrapConfig{
		AdminEmail:    "ops@settle.space",
		AdminPassword: "from-env-secret",
		Users:         newUsers(t),
	})
	require.NoError(t, err)
	assert.True(t, res.PasswordFromEnv)
	assert.Empty(t, res.Password)
}

func TestBootstrapAdmin_InvalidConfig(t *testing.T) {
	_, err := BootstrapAdmin(context.Background(), AdminBootstrapConfig{AdminEmail: "nobody", Users: newUsers(t)})
	assert.Error(t, err)

	_, err = BootstrapAdmin(context.Background(), AdminBootstrapConfig{AdminEmail: "a@b.c"})
	assert.Error(t, err)
}
