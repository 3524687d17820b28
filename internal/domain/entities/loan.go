package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// LoanStatus represents the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusResolved  LoanStatus = "RESOLVED"
	LoanStatusDefaulted LoanStatus = "DEFAULTED"
)

// Loan mirrors an on-chain loan drawn through this service. Token amounts
// are stored as decimal strings in wei so no precision is lost.
type Loan struct {
	ID            uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	OnchainLoanID string      `json:"onchainLoanId"`
	LendingDeskID uint64      `json:"lendingDeskId"`
	UserChatID    int64       `json:"userChatId"`
	Borrower      string      `json:"borrower"`
	NFTID         string      `json:"nftId"`
	Amount        string      `json:"amount"`
	DurationHours uint32      `json:"durationHours"`
	Interest      uint32      `json:"interest"`
	PlatformFee   string      `json:"platformFee"`
	Status        LoanStatus  `json:"status"`
	InitializeTx  string      `json:"initializeTx"`
	LastPaymentTx null.String `json:"lastPaymentTx,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
