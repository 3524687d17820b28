package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/infrastructure/models"
)

// UserRepository implements user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	m := &models.User{
		ChatID:        user.ChatID,
		Username:      user.Username.Ptr(),
		FirstName:     user.FirstName,
		NullifierHash: user.NullifierHash.Ptr(),
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	return nil
}

// GetByChatID gets a user by Telegram chat id
func (r *UserRepository) GetByChatID(ctx context.Context, chatID int64) (*entities.User, error) {
	var m models.User
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetByNullifierHash gets the user a World ID nullifier is bound to
func (r *UserRepository) GetByNullifierHash(ctx context.Context, nullifierHash string) (*entities.User, error) {
	var m models.User
	if err := r.db.WithContext(ctx).Where("nullifier_hash = ?", nullifierHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// SetNullifierHash marks a user verified by binding their nullifier hash
func (r *UserRepository) SetNullifierHash(ctx context.Context, chatID int64, nullifierHash string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("chat_id = ?", chatID).Updates(map[string]interface{}{
		"nullifier_hash": nullifierHash,
		"updated_at":     time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) toEntity(m *models.User) *entities.User {
	return &entities.User{
		ChatID:        m.ChatID,
		Username:      null.StringFromPtr(m.Username),
		FirstName:     m.FirstName,
		NullifierHash: null.StringFromPtr(m.NullifierHash),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
