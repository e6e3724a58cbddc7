package models

import (
	"encoding/json"
	"time"
)

// SentimentInput is one channel annotation on an ingested message. Weight defaults to 1 when omitted.
type SentimentInput struct {
	Channel    string   `json:"channel" validate:"required,min=1,max=50"`
	Score      *float64 `json:"score" validate:"required,gte=-1,lte=1"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Tags       []string `json:"tags" validate:"omitempty,max=32,dive,min=1,max=64"`
	Weight     *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
}

// IngestRequest appends one message with its sentiments.
type IngestRequest struct {
	InstrumentID string           `json:"instrument_id" validate:"required,uuid"`
	SourceID     string           `json:"source_id" validate:"required,uuid"`
	Timestamp    time.Time        `json:"timestamp" validate:"required"`
	Title        string           `json:"title" validate:"max=500"`
	Content      string           `json:"content"`
	URL          string           `json:"url" validate:"omitempty,url,max=1000"`
	RawJSON      json.RawMessage  `json:"raw_json,omitempty"`
	Sentiments   []SentimentInput `json:"sentiments" validate:"required,min=1,max=16,dive"`
}

// IngestResponse carries the id of the stored message.
type IngestResponse struct {
	ID string `json:"id"`
}

// TickerParam binds the :ticker path segment.
type TickerParam struct {
	Ticker string `param:"ticker" validate:"required,max=20"`
}

// MessagesQuery lists the latest messages of an instrument.
type MessagesQuery struct {
	Ticker string `param:"ticker" validate:"required,max=20"`
	Limit  int    `query:"limit" default:"50" validate:"gte=0"`
}

// RangeQuery selects a time range; empty bounds are filled by the handler.
type RangeQuery struct {
	Ticker string `param:"ticker" validate:"required,max=20"`
	From   string `query:"from"`
	To     string `query:"to"`
}

// AggregateRequest triggers aggregation of one explicit window.
type AggregateRequest struct {
	Ticker         string             `param:"ticker" json:"-" validate:"required,max=20"`
	PeriodStart    time.Time          `json:"period_start" validate:"required"`
	PeriodEnd      time.Time          `json:"period_end" validate:"required"`
	ChannelWeights map[string]float64 `json:"channel_weights" validate:"omitempty,dive,keys,min=1,max=50,endkeys,gte=0"`
}

// AggregateResponse is the result of a window run.
type AggregateResponse struct {
	Aggregated *AggregatedSentiment `json:"aggregated"`
	Opinion    *LLMOpinion          `json:"opinion"`
}

// CreateInstrumentRequest registers an instrument.
type CreateInstrumentRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=200"`
	Ticker string `json:"ticker" validate:"required,ticker"`
	ISIN   string `json:"isin" validate:"omitempty,isin"`
	Sector string `json:"sector" validate:"max=100"`
}

// CreateSourceRequest registers a message source.
type CreateSourceRequest struct {
	Name            string     `json:"name" validate:"required,min=1,max=200"`
	Type            SourceType `json:"type" validate:"required,oneof=news social economic"`
	ReputationScore float64    `json:"reputation_score" validate:"gte=0,lte=10"`
	URL             string     `json:"url" validate:"required,url,max=500"`
}

// UpdateReputationRequest sets a source's reputation score.
type UpdateReputationRequest struct {
	ID              string   `param:"id" json:"-" validate:"required,uuid"`
	ReputationScore *float64 `json:"reputation_score" validate:"required,gte=0,lte=10"`
}

// CreateUserRequest registers a user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100,alphanum"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// WatchlistParam binds /users/:username/watchlist/:ticker.
type WatchlistParam struct {
	Username string `param:"username" validate:"required,max=100"`
	Ticker   string `param:"ticker" validate:"omitempty,max=20"`
}
