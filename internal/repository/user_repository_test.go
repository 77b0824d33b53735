package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "secdash/internal/errors"
	"secdash/internal/model"
	"secdash/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))
	ctx := context.Background()

	alice := &model.User{Username: "alice", PasswordHash: "h", Role: model.RoleAdmin, Email: strPtr("alice@example.com")}
	require.NoError(t, repo.Create(ctx, alice))
	require.NotZero(t, alice.ID)

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)
	assert.Equal(t, model.RoleAdmin, byName.Role)
	require.NotNil(t, byName.Email)
	assert.Equal(t, "alice@example.com", *byName.Email)
	assert.Nil(t, byName.FullName)

	byID, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "h", Role: model.RoleUser}))

	tests := []struct {
		name     string
		username string
	}{
		{name: "absent", username: "bob"},
		{name: "case differs", username: "Alice"},
		{name: "empty", username: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.FindByUsername(ctx, tt.username)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		})
	}

	_, err := repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "h", Role: model.RoleUser}))
	err := repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "h2", Role: model.RoleViewer})
	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
}

func TestUserRepository_Updates(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))
	ctx := context.Background()

	u := &model.User{Username: "alice", PasswordHash: "old", Role: model.RoleUser, Email: strPtr("a@example.com")}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.UpdateProfile(ctx, u.ID, nil, strPtr("Alice Liddell")))
	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "new"))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Email)
	require.NotNil(t, got.FullName)
	assert.Equal(t, "Alice Liddell", *got.FullName)
	assert.Equal(t, "new", got.PasswordHash)
}

func TestUserRepository_List(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.Create(ctx, &model.User{Username: name, PasswordHash: "h", Role: model.RoleUser}))
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "carol", users[0].Username)
	assert.Equal(t, "bob", users[2].Username)
}

func TestUserRepository_StoreUnavailable(t *testing.T) {
	gormDB := testutil.NewDB(t)
	repo := NewUserRepository(gormDB)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.FindByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
