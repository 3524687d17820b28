package models

import (
	"time"

	"github.com/google/uuid"
)

type Verification struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserChatID        int64     `gorm:"index;not null"`
	NullifierHash     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	MerkleRoot        string    `gorm:"type:varchar(255);not null"`
	Proof             string    `gorm:"type:text;not null"`
	VerificationLevel string    `gorm:"type:varchar(50);not null"`
	Signal            string    `gorm:"type:varchar(255);not null"`
	MintTxHash        *string   `gorm:"type:varchar(66)"`
	SBTID             *string   `gorm:"column:sbt_id;type:varchar(78)"`
	CollateralNFTID   *string   `gorm:"column:collateral_nft_id;type:varchar(78)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
