package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcalc/internal/models"
	"relcalc/internal/storage"
)

func TestInMemoryUserStore_CreateAndGet(t *testing.T) {
	store := NewInMemoryUserStore()
	ctx := context.Background()

	user := &models.User{
		Email:        "Alice@Example.com",
		PasswordHash: "hash",
		Enabled:      true,
	}
	require.NoError(t, store.Create(ctx, user))
	require.NotEqual(t, uuid.Nil, user.ID)

	// Email lookup is case insensitive.
	found, err := store.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "alice@example.com", found.Email)

	byID, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, found.Email, byID.Email)
}

func TestInMemoryUserStore_DuplicateEmail(t *testing.T) {
	store := NewInMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.User{Email: "alice@example.com", Enabled: true}))

	err := store.Create(ctx, &models.User{Email: "ALICE@example.com", Enabled: true})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestInMemoryUserStore_NotFound(t *testing.T) {
	store := NewInMemoryUserStore()
	ctx := context.Background()

	_, err := store.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	assert.ErrorIs(t, store.SetPremium(ctx, uuid.New(), true), storage.ErrUserNotFound)
}

func TestInMemoryUserStore_SetPremium(t *testing.T) {
	store := NewInMemoryUserStore()
	ctx := context.Background()

	user := &models.User{Email: "bob@example.com", Enabled: true}
	require.NoError(t, store.Create(ctx, user))

	require.NoError(t, store.SetPremium(ctx, user.ID, true))

	found, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, found.IsPremium)
}

func TestInMemoryUserStore_RecordLogin(t *testing.T) {
	store := NewInMemoryUserStore()
	ctx := context.Background()

	user := &models.User{Email: "bob@example.com", Enabled: true}
	require.NoError(t, store.Create(ctx, user))
	require.Nil(t, user.LastLoginAt)

	require.NoError(t, store.RecordLogin(ctx, user.ID))

	found, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
}
