package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User owns a watchlist of tickers.
type User struct {
	ID           string                      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username     string                      `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email        string                      `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string                      `gorm:"size:100;not null" json:"-"`
	Watchlist    datatypes.JSONSlice[string] `json:"watchlist"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Watchlist == nil {
		u.Watchlist = datatypes.JSONSlice[string]{}
	}
	return nil
}
