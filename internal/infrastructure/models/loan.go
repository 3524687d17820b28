package models

import (
	"time"

	"github.com/google/uuid"
)

type Loan struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	OnchainLoanID string    `gorm:"type:varchar(78);uniqueIndex;not null"`
	LendingDeskID uint64    `gorm:"not null"`
	UserChatID    int64     `gorm:"index;not null"`
	Borrower      string    `gorm:"type:varchar(42);not null"`
	NFTID         string    `gorm:"column:nft_id;type:varchar(78);not null"`
	Amount        string    `gorm:"type:varchar(78);not null"`
	DurationHours uint32    `gorm:"not null"`
	Interest      uint32    `gorm:"not null"`
	PlatformFee   string    `gorm:"type:varchar(78);not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	InitializeTx  string    `gorm:"type:varchar(66);not null"`
	LastPaymentTx *string   `gorm:"type:varchar(66)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
