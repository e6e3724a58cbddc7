package models

import (
	"time"

	"gorm.io/gorm"
)

// Recommendation is the action derived from an aggregate.
type Recommendation string

const (
	Buy  Recommendation = "BUY"
	Sell Recommendation = "SELL"
	Hold Recommendation = "HOLD"
)

// LLMOpinion is the recommendation attached to exactly one aggregate.
type LLMOpinion struct {
	ID                    string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	InstrumentID          string         `gorm:"type:varchar(36);not null;index" json:"instrument_id"`
	AggregatedSentimentID string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"aggregated_sentiment_id"`
	Recommendation        Recommendation `gorm:"size:4;not null" json:"recommendation"`
	Explanation           string         `gorm:"type:text;not null" json:"explanation"`
	Confidence            float64        `gorm:"not null" json:"confidence"`
	DominantChannel       string         `gorm:"size:50" json:"dominant_channel"`
	RecScore              float64        `gorm:"not null" json:"rec_score"`
	CreatedAt             time.Time      `json:"created_at"`
}

func (LLMOpinion) TableName() string { return "llm_opinions" }

func (o *LLMOpinion) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = newID()
	}
	return nil
}
