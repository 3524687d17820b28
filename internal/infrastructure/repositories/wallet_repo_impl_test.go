package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
)

func TestWalletRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	createWalletTable(t, db)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	now := time.Now()
	w := &entities.Wallet{
		ID:                  uuid.New(),
		UserChatID:          42,
		OwnerAddress:        "0x1111111111111111111111111111111111111111",
		SmartAccountAddress: "0x2222222222222222222222222222222222222222",
		PrivateKeyHex:       "deadbeef",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, repo.Create(ctx, w))

	byChat, err := repo.GetByUserChatID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, w.SmartAccountAddress, byChat.SmartAccountAddress)

	byAddr, err := repo.GetBySmartAccountAddress(ctx, w.SmartAccountAddress)
	require.NoError(t, err)
	require.Equal(t, w.ID, byAddr.ID)
	require.Equal(t, "deadbeef", byAddr.PrivateKeyHex)
}

func TestWalletRepository_NotFoundBranches(t *testing.T) {
	db := newTestDB(t)
	createWalletTable(t, db)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	_, err := repo.GetByUserChatID(ctx, 99)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = repo.GetBySmartAccountAddress(ctx, "0x0000000000000000000000000000000000000000")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
