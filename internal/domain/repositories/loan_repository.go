package repositories

import (
	"context"

	"github.com/google/uuid"
	"magnify-lend.backend/internal/domain/entities"
)

// LoanRepository defines loan data operations
type LoanRepository interface {
	Create(ctx context.Context, loan *entities.Loan) error
	GetActiveByUserChatID(ctx context.Context, chatID int64) (*entities.Loan, error)
	GetByOnchainLoanID(ctx context.Context, onchainLoanID string) (*entities.Loan, error)
	ListByUserChatID(ctx context.Context, chatID int64) ([]*entities.Loan, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.LoanStatus, paymentTx string) error
}
