package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SourceType classifies where messages come from; it doubles as the default sentiment channel.
type SourceType string

const (
	SourceNews     SourceType = "news"
	SourceSocial   SourceType = "social"
	SourceEconomic SourceType = "economic"
)

// Instrument is a tradable asset identified by its ticker.
type Instrument struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Ticker    string    `gorm:"size:20;not null;uniqueIndex" json:"ticker"`
	ISIN      *string   `gorm:"column:isin;size:12" json:"isin,omitempty"`
	Sector    string    `gorm:"size:100" json:"sector,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Instrument) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = newID()
	}
	return nil
}

// Source is a publisher of messages with a reputation score in [0, 10].
type Source struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name            string     `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Type            SourceType `gorm:"size:20;not null" json:"type"`
	ReputationScore float64    `gorm:"not null;default:0" json:"reputation_score"`
	URL             string     `gorm:"column:url;size:500" json:"url"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (s *Source) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
