package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/infrastructure/models"
)

// LoanRepository implements loan data operations
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create creates a new loan record
func (r *LoanRepository) Create(ctx context.Context, loan *entities.Loan) error {
	m := &models.Loan{
		ID:            loan.ID,
		OnchainLoanID: loan.OnchainLoanID,
		LendingDeskID: loan.LendingDeskID,
		UserChatID:    loan.UserChatID,
		Borrower:      loan.Borrower,
		NFTID:         loan.NFTID,
		Amount:        loan.Amount,
		DurationHours: loan.DurationHours,
		Interest:      loan.Interest,
		PlatformFee:   loan.PlatformFee,
		Status:        string(loan.Status),
		InitializeTx:  loan.InitializeTx,
		LastPaymentTx: loan.LastPaymentTx.Ptr(),
		CreatedAt:     loan.CreatedAt,
		UpdatedAt:     loan.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	return nil
}

// GetActiveByUserChatID gets a user's currently active loan, if any
func (r *LoanRepository) GetActiveByUserChatID(ctx context.Context, chatID int64) (*entities.Loan, error) {
	var m models.Loan
	err := r.db.WithContext(ctx).
		Where("user_chat_id = ? AND status = ?", chatID, string(entities.LoanStatusActive)).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetByOnchainLoanID gets a loan by its on-chain loan id
func (r *LoanRepository) GetByOnchainLoanID(ctx context.Context, onchainLoanID string) (*entities.Loan, error) {
	var m models.Loan
	if err := r.db.WithContext(ctx).Where("onchain_loan_id = ?", onchainLoanID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListByUserChatID lists a user's loans newest first
func (r *LoanRepository) ListByUserChatID(ctx context.Context, chatID int64) ([]*entities.Loan, error) {
	var loanModels []models.Loan
	err := r.db.WithContext(ctx).
		Where("user_chat_id = ?", chatID).
		Order("created_at DESC").
		Find(&loanModels).Error
	if err != nil {
		return nil, err
	}

	var loans []*entities.Loan
	for _, m := range loanModels {
		model := m
		loans = append(loans, r.toEntity(&model))
	}
	return loans, nil
}

// UpdateStatus transitions a loan's status and records the payment tx
func (r *LoanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.LoanStatus, paymentTx string) error {
	updates := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now(),
	}
	if paymentTx != "" {
		updates["last_payment_tx"] = paymentTx
	}

	result := r.db.WithContext(ctx).Model(&models.Loan{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) toEntity(m *models.Loan) *entities.Loan {
	return &entities.Loan{
		ID:            m.ID,
		OnchainLoanID: m.OnchainLoanID,
		LendingDeskID: m.LendingDeskID,
		UserChatID:    m.UserChatID,
		Borrower:      m.Borrower,
		NFTID:         m.NFTID,
		Amount:        m.Amount,
		DurationHours: m.DurationHours,
		Interest:      m.Interest,
		PlatformFee:   m.PlatformFee,
		Status:        entities.LoanStatus(m.Status),
		InitializeTx:  m.InitializeTx,
		LastPaymentTx: null.StringFromPtr(m.LastPaymentTx),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
