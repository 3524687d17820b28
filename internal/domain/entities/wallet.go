package entities

import (
	"time"

	"github.com/google/uuid"
)

// Wallet represents a user's custodial wallet: the signer key pair and the
// smart account it controls. The smart account address is derived
// deterministically at creation and never changes.
type Wallet struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserChatID          int64     `json:"userChatId"`
	OwnerAddress        string    `json:"ownerAddress"`
	SmartAccountAddress string    `json:"smartAccountAddress"`
	PrivateKeyHex       string    `json:"-"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
