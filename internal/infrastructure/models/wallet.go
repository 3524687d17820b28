package models

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserChatID          int64     `gorm:"uniqueIndex;not null"`
	OwnerAddress        string    `gorm:"type:varchar(42);not null"`
	SmartAccountAddress string    `gorm:"type:varchar(42);uniqueIndex;not null"`
	PrivateKeyHex       string    `gorm:"type:varchar(66);not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
