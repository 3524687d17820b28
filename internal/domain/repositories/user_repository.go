package repositories

import (
	"context"

	"magnify-lend.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByChatID(ctx context.Context, chatID int64) (*entities.User, error)
	GetByNullifierHash(ctx context.Context, nullifierHash string) (*entities.User, error)
	SetNullifierHash(ctx context.Context, chatID int64, nullifierHash string) error
}
