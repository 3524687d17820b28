package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/infrastructure/models"
)

// WalletRepository implements wallet data operations
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create creates a new wallet
func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	m := &models.Wallet{
		ID:                  wallet.ID,
		UserChatID:          wallet.UserChatID,
		OwnerAddress:        wallet.OwnerAddress,
		SmartAccountAddress: wallet.SmartAccountAddress,
		PrivateKeyHex:       wallet.PrivateKeyHex,
		CreatedAt:           wallet.CreatedAt,
		UpdatedAt:           wallet.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	return nil
}

// GetByUserChatID gets a user's wallet
func (r *WalletRepository) GetByUserChatID(ctx context.Context, chatID int64) (*entities.Wallet, error) {
	var m models.Wallet
	if err := r.db.WithContext(ctx).Where("user_chat_id = ?", chatID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetBySmartAccountAddress gets a wallet by its smart account address
func (r *WalletRepository) GetBySmartAccountAddress(ctx context.Context, address string) (*entities.Wallet, error) {
	var m models.Wallet
	if err := r.db.WithContext(ctx).Where("smart_account_address = ?", address).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *WalletRepository) toEntity(m *models.Wallet) *entities.Wallet {
	return &entities.Wallet{
		ID:                  m.ID,
		UserChatID:          m.UserChatID,
		OwnerAddress:        m.OwnerAddress,
		SmartAccountAddress: m.SmartAccountAddress,
		PrivateKeyHex:       m.PrivateKeyHex,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
