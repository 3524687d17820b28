package models

import (
	"time"
)

type User struct {
	ChatID        int64   `gorm:"primaryKey"`
	Username      *string `gorm:"type:varchar(255)"`
	FirstName     string  `gorm:"type:varchar(255)"`
	NullifierHash *string `gorm:"type:varchar(255);uniqueIndex"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
