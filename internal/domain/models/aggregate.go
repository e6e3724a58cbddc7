package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Rating is the 1..5 sentiment bucket of an aggregated score.
type Rating int

// AggregatedSentiment is the immutable fold of one instrument's messages over one window.
type AggregatedSentiment struct {
	ID              string                                 `gorm:"type:varchar(36);primaryKey" json:"id"`
	InstrumentID    string                                 `gorm:"type:varchar(36);not null;uniqueIndex:uq_aggregate_window,priority:1;index:idx_aggregate_instrument_end,priority:1" json:"instrument_id"`
	PeriodStart     time.Time                              `gorm:"not null;uniqueIndex:uq_aggregate_window,priority:2" json:"period_start"`
	PeriodEnd       time.Time                              `gorm:"not null;uniqueIndex:uq_aggregate_window,priority:3;index:idx_aggregate_instrument_end,priority:2" json:"period_end"`
	Scores          datatypes.JSONType[map[string]float64] `json:"scores"`
	AggregatedScore float64                                `gorm:"not null" json:"aggregated_score"`
	Rating          Rating                                 `gorm:"not null" json:"rating"`
	MessageCount    int                                    `gorm:"not null;default:0" json:"message_count"`
	CreatedAt       time.Time                              `json:"created_at"`
}

func (a *AggregatedSentiment) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	a.PeriodStart = a.PeriodStart.UTC()
	a.PeriodEnd = a.PeriodEnd.UTC()
	return nil
}

// ChannelScores returns the per-channel scores.
func (a *AggregatedSentiment) ChannelScores() map[string]float64 {
	return a.Scores.Data()
}

// Window returns the aggregate's period.
func (a *AggregatedSentiment) Window() Window {
	return Window{Start: a.PeriodStart, End: a.PeriodEnd}
}

// ChannelWeights maps channel name to its weight in the combined score. Missing channels weigh 1.
type ChannelWeights map[string]float64

// Of returns the weight of channel.
func (w ChannelWeights) Of(channel string) float64 {
	if v, ok := w[channel]; ok {
		return v
	}
	return 1
}
