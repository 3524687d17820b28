package repositories

import (
	"context"
	"errors"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/infrastructure/models"
)

// VerificationRepository implements verification record operations
type VerificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create creates a new verification record
func (r *VerificationRepository) Create(ctx context.Context, verification *entities.Verification) error {
	m := &models.Verification{
		ID:                verification.ID,
		UserChatID:        verification.UserChatID,
		NullifierHash:     verification.NullifierHash,
		MerkleRoot:        verification.MerkleRoot,
		Proof:             verification.Proof,
		VerificationLevel: verification.VerificationLevel,
		Signal:            verification.Signal,
		MintTxHash:        verification.MintTxHash.Ptr(),
		SBTID:             verification.SBTID.Ptr(),
		CollateralNFTID:   verification.CollateralNFTID.Ptr(),
		CreatedAt:         verification.CreatedAt,
		UpdatedAt:         verification.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	return nil
}

// GetByNullifierHash gets a verification record by nullifier hash
func (r *VerificationRepository) GetByNullifierHash(ctx context.Context, nullifierHash string) (*entities.Verification, error) {
	var m models.Verification
	if err := r.db.WithContext(ctx).Where("nullifier_hash = ?", nullifierHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetByUserChatID gets the most recent verification record of a user
func (r *VerificationRepository) GetByUserChatID(ctx context.Context, chatID int64) (*entities.Verification, error) {
	var m models.Verification
	if err := r.db.WithContext(ctx).Where("user_chat_id = ?", chatID).Order("created_at DESC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *VerificationRepository) toEntity(m *models.Verification) *entities.Verification {
	return &entities.Verification{
		ID:                m.ID,
		UserChatID:        m.UserChatID,
		NullifierHash:     m.NullifierHash,
		MerkleRoot:        m.MerkleRoot,
		Proof:             m.Proof,
		VerificationLevel: m.VerificationLevel,
		Signal:            m.Signal,
		MintTxHash:        null.StringFromPtr(m.MintTxHash),
		SBTID:             null.StringFromPtr(m.SBTID),
		CollateralNFTID:   null.StringFromPtr(m.CollateralNFTID),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
