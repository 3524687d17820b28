package repositories

import (
	"context"

	"magnify-lend.backend/internal/domain/entities"
)

// VerificationRepository defines verification record operations
type VerificationRepository interface {
	Create(ctx context.Context, verification *entities.Verification) error
	GetByNullifierHash(ctx context.Context, nullifierHash string) (*entities.Verification, error)
	GetByUserChatID(ctx context.Context, chatID int64) (*entities.Verification, error)
}
