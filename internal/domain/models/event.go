package models

import "time"

// Event names pushed to realtime clients and the event bus.
const (
	EventSnapshot        = "snapshot"
	EventTimeseriesNew   = "timeseries:new"
	EventKPIsUpdate      = "kpis:update"
	EventWordcloudUpdate = "wordcloud:update"
	EventNewsNew         = "news:new"
	EventTableUpdate     = "table:update"
)

// Event is the envelope of every published change.
type Event struct {
	Name   string      `json:"event"`
	Ticker string      `json:"ticker,omitempty"`
	Data   interface{} `json:"data"`
	At     time.Time   `json:"at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(name, ticker string, data interface{}) Event {
	return Event{Name: name, Ticker: ticker, Data: data, At: time.Now().UTC()}
}

// TrendPoint is one aggregate on the sentiment trend chart. Score is the aggregate mapped to 0..100.
type TrendPoint struct {
	Time            time.Time `json:"time"`
	AggregatedScore float64   `json:"aggregated_score"`
	Score           float64   `json:"score"`
	Rating          Rating    `json:"rating"`
}

// KPIs summarises the latest window of an instrument.
type KPIs struct {
	Ticker          string             `json:"ticker"`
	AggregatedScore float64            `json:"aggregated_score"`
	Rating          Rating             `json:"rating"`
	Recommendation  Recommendation     `json:"recommendation"`
	Confidence      float64            `json:"confidence"`
	RecScore        float64            `json:"rec_score"`
	MessageCount    int                `json:"message_count"`
	Scores          map[string]float64 `json:"scores"`
	PeriodEnd       time.Time          `json:"period_end"`
}

// WordCount is one word cloud entry.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// NewsItem is the realtime view of a freshly ingested message.
type NewsItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title,omitempty"`
	URL        string      `json:"url,omitempty"`
	Source     string      `json:"source,omitempty"`
	SourceType SourceType  `json:"source_type,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Sentiments []Sentiment `json:"sentiments"`
}

// TableRow is one line of the dashboard instrument table.
type TableRow struct {
	Ticker          string          `json:"ticker"`
	Name            string          `json:"name"`
	Sector          string          `json:"sector,omitempty"`
	AggregatedScore *float64        `json:"aggregated_score"`
	Rating          *Rating         `json:"rating"`
	Recommendation  *Recommendation `json:"recommendation"`
	Confidence      *float64        `json:"confidence"`
	PeriodEnd       *time.Time      `json:"period_end"`
}

// Snapshot is everything a dashboard needs for one instrument at once.
type Snapshot struct {
	Instrument *Instrument          `json:"instrument"`
	Aggregated *AggregatedSentiment `json:"aggregated"`
	Opinion    *LLMOpinion          `json:"opinion"`
	Messages   []*Message           `json:"messages"`
	Trend      []TrendPoint         `json:"trend"`
	WordCloud  []WordCount          `json:"wordcloud"`
}
