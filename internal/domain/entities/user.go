package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// User represents a Telegram user of the lending bot. The chat id doubles
// as primary key since the bot only ever addresses users through it.
type User struct {
	ChatID        int64       `json:"chatId" gorm:"primary_key"`
	Username      null.String `json:"username,omitempty"`
	FirstName     string      `json:"firstName"`
	NullifierHash null.String `json:"-"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`

	// Joins
	Wallet *Wallet `json:"wallet,omitempty" gorm:"foreignKey:UserChatID"`
}

// Verified reports whether the user has completed identity verification
func (u *User) Verified() bool {
	return u.NullifierHash.Valid && u.NullifierHash.String != ""
}
