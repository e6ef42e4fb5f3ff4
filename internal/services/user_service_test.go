package services

import (
	"context"
	"testing"

	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, "ab", "secret1", models.RoleUser)
	assert.True(t, apperr.Is(err, apperr.ValidationKind))

	_, err = f.users.CreateUser(ctx, "alice", "123", models.RoleUser)
	assert.True(t, apperr.Is(err, apperr.ValidationKind))

	_, err = f.users.CreateUser(ctx, "alice", "secret1", models.Role("root"))
	assert.True(t, apperr.Is(err, apperr.ValidationKind))

	u, err := f.users.CreateUser(ctx, "  alice ", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Empty(t, u.PasswordHash)

	_, err = f.users.CreateUser(ctx, "alice", "another1", models.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.ConflictKind))
	assert.Equal(t, "Username already exists", apperr.Message(err))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.users.CreateUser(ctx, "bob", "hunter22", models.RoleUser)
	require.NoError(t, err)
	assert.Nil(t, created.LastLogin)

	_, err = f.users.Authenticate(ctx, "bob", "wrong-pass")
	assert.True(t, apperr.Is(err, apperr.InvalidCredentialKind))

	_, err = f.users.Authenticate(ctx, "nobody", "hunter22")
	assert.True(t, apperr.Is(err, apperr.InvalidCredentialKind))

	u, err := f.users.Authenticate(ctx, "bob", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
	assert.Empty(t, u.PasswordHash)

	stored, err := f.users.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
}

func TestBlockedUserCannotLogIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.CreateUser(ctx, "carol", "secret1", models.RoleUser)
	require.NoError(t, err)

	blocked, err := f.users.SetBlocked(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked)

	_, err = f.users.Authenticate(ctx, "carol", "secret1")
	assert.True(t, apperr.Is(err, apperr.ForbiddenKind))
	assert.Equal(t, "Account is blocked", apperr.Message(err))

	unblocked, err := f.users.SetBlocked(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, unblocked.IsBlocked)

	_, err = f.users.Authenticate(ctx, "carol", "secret1")
	assert.NoError(t, err)

	_, err = f.users.SetBlocked(ctx, "missing", true)
	assert.True(t, apperr.Is(err, apperr.NotFoundKind))
}

func TestListAndDeleteUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.users.CreateUser(ctx, "alpha", "secret1", models.RoleUser)
	require.NoError(t, err)
	_, err = f.users.CreateUser(ctx, "beta", "secret1", models.RoleAdmin)
	require.NoError(t, err)

	list, err := f.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Username)
	assert.Equal(t, "beta", list[1].Username)

	require.NoError(t, f.users.DeleteUser(ctx, a.ID))
	_, err = f.users.GetUserByID(ctx, a.ID)
	assert.True(t, apperr.Is(err, apperr.NotFoundKind))

	err = f.users.DeleteUser(ctx, a.ID)
	assert.True(t, apperr.Is(err, apperr.NotFoundKind))

	assert.Equal(t, []string{"user.signup", "user.signup", "user.delete"}, f.pub.types())
}
