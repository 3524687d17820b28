package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Verification records a completed World ID proof verification and the
// on-chain mints it triggered. The nullifier hash is unique across all
// records so one identity can only ever verify one account.
type Verification struct {
	ID                uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserChatID        int64       `json:"userChatId"`
	NullifierHash     string      `json:"nullifierHash"`
	MerkleRoot        string      `json:"merkleRoot"`
	Proof             string      `json:"-"`
	VerificationLevel string      `json:"verificationLevel"`
	Signal            string      `json:"signal"`
	MintTxHash        null.String `json:"mintTxHash,omitempty"`
	SBTID             null.String `json:"sbtId,omitempty"`
	CollateralNFTID   null.String `json:"collateralNftId,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}
