package repositories

import (
	"context"

	"magnify-lend.backend/internal/domain/entities"
)

// WalletRepository defines wallet data operations
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	GetByUserChatID(ctx context.Context, chatID int64) (*entities.Wallet, error)
	GetBySmartAccountAddress(ctx context.Context, address string) (*entities.Wallet, error)
}
