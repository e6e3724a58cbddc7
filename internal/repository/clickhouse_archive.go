package repository

import (
	"context"
	"fmt"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	applogger "SentiPulse/pkg/logger"
)

// BatchInserter is implemented by pkg/clickhouse.Client.
type BatchInserter interface {
	InsertBatch(ctx context.Context, query string, rows [][]interface{}) error
}

// ArchiveSchema creates the trend archive table.
func ArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sentiment_trend (
			ticker String,
			period_end DateTime64(3, 'UTC'),
			aggregated_score Float64,
			score Float64,
			rating UInt8,
			archived_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(archived_at) ORDER BY (ticker, period_end)`, database),
	}
}

// ClickHouseArchive keeps every trend point for long range analytics. Other events are ignored.
type ClickHouseArchive struct {
	ch    BatchInserter
	table string
	l     *applogger.Logger
}

func NewClickHouseArchive(ch BatchInserter, database string, l *applogger.Logger) *ClickHouseArchive {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseArchive{ch: ch, table: database + ".sentiment_trend", l: l}
}

var _ domrepo.EventSink = (*ClickHouseArchive)(nil)

func (a *ClickHouseArchive) Name() string { return "clickhouse" }

func (a *ClickHouseArchive) Deliver(ctx context.Context, e models.Event) error {
	if e.Name != models.EventTimeseriesNew {
		return nil
	}
	p, ok := e.Data.(models.TrendPoint)
	if !ok {
		return fmt.Errorf("archive: unexpected %s payload %T", e.Name, e.Data)
	}

	start := time.Now()
	q := fmt.Sprintf("INSERT INTO %s (ticker, period_end, aggregated_score, score, rating, archived_at) VALUES (?, ?, ?, ?, ?, ?)", a.table)
	err := a.ch.InsertBatch(ctx, q, [][]interface{}{{
		e.Ticker, p.Time.UTC(), p.AggregatedScore, p.Score, uint8(p.Rating), e.At.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("archive trend point: %w", err)
	}
	a.l.Debug("clickhouse trend archived",
		applogger.String("ticker", e.Ticker),
		applogger.Time("period_end", p.Time),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}
