package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func TestEnsureUserIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.EnsureUser(ctx, "admin", "admin123", "key-1", true)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.users.EnsureUser(ctx, "ADMIN", "other", "key-2", true)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, env.countRows(t, "SELECT COUNT(*) FROM users"))

	// the first password survives a second seed
	_, err = env.users.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.EnsureUser(ctx, "Nurse", "s3cret", "", false)
	require.NoError(t, err)

	user, err := env.users.Authenticate(ctx, "nurse", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Nurse", user.Username)
	assert.Empty(t, user.PasswordHash)

	_, err = env.users.Authenticate(ctx, "Nurse", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, errUnknown := env.users.Authenticate(ctx, "ghost", "s3cret")
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, err.Error(), errUnknown.Error())
}

func TestAuthenticateCorruptHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.db.ExecContext(ctx, "INSERT INTO users (username, password_hash) VALUES ('legacy', 'md5$abc$def')")
	require.NoError(t, err)

	_, err = env.users.Authenticate(ctx, "legacy", "whatever")
	assert.ErrorIs(t, err, ErrCorruptCredentialState)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsOversizedHashParameters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.EnsureUser(ctx, "nurse", "s3cret", "", false)
	require.NoError(t, err)

	for _, stored := range []string{
		"scrypt:17592186044416:1:1$salt$abcdef",
		"pbkdf2:sha256:50000000$salt$abcdef",
	} {
		_, err := env.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE username = 'nurse'", stored)
		require.NoError(t, err)

		start := time.Now()
		require.NotPanics(t, func() {
			_, err = env.users.Authenticate(ctx, "nurse", "s3cret")
		}, stored)
		assert.ErrorIs(t, err, ErrCorruptCredentialState, stored)
		assert.Less(t, time.Since(start), 2*time.Second, stored)
	}
}

func TestAuthenticateUpgradesLegacyHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	key := pbkdf2.Key([]byte("admin123"), []byte("salty"), 1000, sha256.Size, sha256.New)
	legacy := fmt.Sprintf("pbkdf2:sha256:1000$salty$%s", hex.EncodeToString(key))
	_, err := env.db.ExecContext(ctx, "INSERT INTO users (username, password_hash, is_admin) VALUES ('admin', ?, 1)", legacy)
	require.NoError(t, err)

	user, err := env.users.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	stored, err := env.users.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "$2")

	_, err = env.users.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
}

func TestAuthenticateAPIKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.EnsureUser(ctx, "admin", "admin123", "valid-key", true)
	require.NoError(t, err)

	_, err = env.users.AuthenticateAPIKey(ctx, "")
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = env.users.AuthenticateAPIKey(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidKey)

	user, err := env.users.AuthenticateAPIKey(ctx, "valid-key")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Empty(t, user.PasswordHash)
}

func TestUpsertAdminAndRotateKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.UpsertAdmin(ctx, "root", "first")
	require.NoError(t, err)
	require.NotNil(t, created.APIKey)
	assert.True(t, created.IsAdmin)

	reset, err := env.users.UpsertAdmin(ctx, "ROOT", "second")
	require.NoError(t, err)
	assert.Equal(t, created.ID, reset.ID)
	assert.Equal(t, *created.APIKey, *reset.APIKey)

	_, err = env.users.Authenticate(ctx, "root", "first")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.users.Authenticate(ctx, "root", "second")
	require.NoError(t, err)

	key, err := env.users.RotateAPIKey(ctx, "root")
	require.NoError(t, err)
	assert.NotEqual(t, *created.APIKey, key)

	_, err = env.users.AuthenticateAPIKey(ctx, *created.APIKey)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = env.users.AuthenticateAPIKey(ctx, key)
	require.NoError(t, err)

	_, err = env.users.RotateAPIKey(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := env.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash)
}

func TestAssignAPIKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.EnsureUser(ctx, "alice", "pw", "alice-key", false)
	require.NoError(t, err)
	_, err = env.users.EnsureUser(ctx, "bob", "pw", "", false)
	require.NoError(t, err)

	require.NoError(t, env.users.AssignAPIKey(ctx, "bob", "bob-key"))
	user, err := env.users.AuthenticateAPIKey(ctx, "bob-key")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	assert.ErrorIs(t, env.users.AssignAPIKey(ctx, "bob", "alice-key"), ErrConflict)
	assert.ErrorIs(t, env.users.AssignAPIKey(ctx, "bob", " "), ErrValidation)
	assert.ErrorIs(t, env.users.AssignAPIKey(ctx, "carol", "k"), ErrNotFound)
}
