package models

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message is an append-only raw market item with its sentiment annotations.
type Message struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	InstrumentID string         `gorm:"type:varchar(36);not null;index:idx_messages_instrument_ts,priority:1" json:"instrument_id"`
	SourceID     string         `gorm:"type:varchar(36);not null" json:"source_id"`
	Timestamp    time.Time      `gorm:"not null;index:idx_messages_instrument_ts,priority:2" json:"timestamp"`
	Title        string         `gorm:"size:500" json:"title,omitempty"`
	Content      string         `gorm:"type:text" json:"content,omitempty"`
	URL          string         `gorm:"column:url;size:1000" json:"url,omitempty"`
	RawJSON      datatypes.JSON `gorm:"column:raw_json" json:"raw_json,omitempty"`
	Sentiments   []Sentiment    `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"sentiments"`
	Source       *Source        `gorm:"foreignKey:SourceID" json:"source,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	m.Timestamp = m.Timestamp.UTC()
	return nil
}

// Sentiment is one channel's view of a message.
type Sentiment struct {
	ID         uint                        `gorm:"primaryKey" json:"-"`
	MessageID  string                      `gorm:"type:varchar(36);not null;index" json:"-"`
	Channel    string                      `gorm:"size:50;not null" json:"channel"`
	Score      float64                     `gorm:"not null" json:"score"`
	Confidence float64                     `gorm:"not null" json:"confidence"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	Weight     float64                     `gorm:"not null" json:"weight"`
	Position   int                         `gorm:"not null" json:"-"`
}

func (Sentiment) TableName() string { return "message_sentiments" }

// Validate checks the message and every annotation before anything is written.
func (m *Message) Validate() error {
	verr := &ValidationError{}
	add := func(field, format string, args ...interface{}) {
		verr.Fields = append(verr.Fields, FieldViolation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if m.InstrumentID == "" {
		add("instrument_id", "instrument_id is required")
	}
	if m.SourceID == "" {
		add("source_id", "source_id is required")
	}
	if m.Timestamp.IsZero() {
		add("timestamp", "timestamp is required")
	}
	if utf8.RuneCountInString(m.Title) > 500 {
		add("title", "title must be at most 500 characters")
	}
	if len(m.Sentiments) == 0 {
		add("sentiments", "at least one sentiment is required")
	}
	for i, s := range m.Sentiments {
		prefix := fmt.Sprintf("sentiments[%d]", i)
		if n := utf8.RuneCountInString(s.Channel); n == 0 || n > 50 {
			add(prefix+".channel", "channel must be 1-50 characters")
		}
		if math.IsNaN(s.Score) || s.Score < -1 || s.Score > 1 {
			add(prefix+".score", "score must be within [-1, 1]")
		}
		if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
			add(prefix+".confidence", "confidence must be within [0, 1]")
		}
		if math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) || s.Weight < 0 {
			add(prefix+".weight", "weight must be a non-negative number")
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
