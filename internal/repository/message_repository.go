package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultWindowBatch = 500

// MessageRepository is the gorm implementation of the message log.
type MessageRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewMessageRepository creates the store. batchSize bounds the rows fetched per QueryWindow page.
func NewMessageRepository(db *gorm.DB, batchSize int) *MessageRepository {
	if batchSize <= 0 {
		batchSize = defaultWindowBatch
	}
	return &MessageRepository{db: db, batchSize: batchSize}
}

var _ domrepo.MessageStore = (*MessageRepository)(nil)

func (r *MessageRepository) Append(ctx context.Context, m *models.Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	for i := range m.Sentiments {
		m.Sentiments[i].Position = i
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockInstrument(tx, m.InstrumentID); err != nil {
			return err
		}
		if err := mustExist(tx, &models.Source{}, "source", m.SourceID); err != nil {
			return err
		}
		if err := checkNotAggregated(tx, m.InstrumentID, m.Timestamp.UTC()); err != nil {
			return err
		}
		return tx.Omit("Source").Create(m).Error
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrWindowClosed) {
			return "", err
		}
		return "", translate(err, "message", m.ID)
	}
	return m.ID, nil
}

// lockInstrument takes the instrument row lock that serialises appends with aggregate
// inserts of the same instrument. SQLite ignores the locking clause.
func lockInstrument(tx *gorm.DB, id string) error {
	var inst models.Instrument
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", id).Take(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFound("instrument", id)
	}
	return err
}

// checkNotAggregated fails with ErrWindowClosed when an aggregate already covers ts.
func checkNotAggregated(tx *gorm.DB, instrumentID string, ts time.Time) error {
	var covering models.AggregatedSentiment
	err := tx.Select("id", "period_start", "period_end").
		Where("instrument_id = ? AND period_start <= ? AND period_end > ?", instrumentID, ts, ts).
		Take(&covering).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("timestamp %s already aggregated in %s: %w", ts.Format(time.RFC3339), covering.ID, models.ErrWindowClosed)
	}
}

// countWindow counts the instrument's messages in [w.Start, w.End).
func countWindow(tx *gorm.DB, instrumentID string, w models.Window) (int64, error) {
	var n int64
	err := tx.Model(&models.Message{}).
		Where("instrument_id = ? AND timestamp >= ? AND timestamp < ?", instrumentID, w.Start.UTC(), w.End.UTC()).
		Count(&n).Error
	return n, err
}

func mustExist(tx *gorm.DB, model interface{}, entity, id string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return models.NewNotFound(entity, id)
	}
	return nil
}

// QueryWindow pages through the window with a (timestamp, id) keyset. Each range over the
// returned sequence starts a fresh scan.
func (r *MessageRepository) QueryWindow(ctx context.Context, instrumentID string, w models.Window) iter.Seq2[*models.Message, error] {
	start, end := w.Start.UTC(), w.End.UTC()

	return func(yield func(*models.Message, error) bool) {
		var (
			cursorTS time.Time
			cursorID string
			paged    bool
		)
		for {
			q := r.db.WithContext(ctx).
				Preload("Sentiments", orderByPosition).
				Where("instrument_id = ? AND timestamp >= ? AND timestamp < ?", instrumentID, start, end)
			if paged {
				q = q.Where("(timestamp > ? OR (timestamp = ? AND id > ?))", cursorTS, cursorTS, cursorID)
			}

			var batch []*models.Message
			if err := q.Order("timestamp ASC").Order("id ASC").Limit(r.batchSize).Find(&batch).Error; err != nil {
				yield(nil, translate(err, "message", instrumentID))
				return
			}
			for _, m := range batch {
				if !yield(m, nil) {
					return
				}
			}
			if len(batch) < r.batchSize {
				return
			}
			last := batch[len(batch)-1]
			cursorTS, cursorID, paged = last.Timestamp.UTC(), last.ID, true
		}
	}
}

func (r *MessageRepository) Latest(ctx context.Context, instrumentID string, limit int) ([]*models.Message, error) {
	out := make([]*models.Message, 0, limit)
	err := r.db.WithContext(ctx).
		Preload("Sentiments", orderByPosition).
		Preload("Source").
		Where("instrument_id = ?", instrumentID).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "message", instrumentID)
	}
	return out, nil
}

func (r *MessageRepository) Titles(ctx context.Context, instrumentID string, sourceType models.SourceType, from, to time.Time) ([]string, error) {
	var titles []string
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Joins("JOIN sources ON sources.id = messages.source_id").
		Where("messages.instrument_id = ? AND sources.type = ?", instrumentID, sourceType).
		Where("messages.timestamp >= ? AND messages.timestamp < ?", from.UTC(), to.UTC()).
		Where("messages.title <> ''").
		Order("messages.timestamp ASC").
		Pluck("messages.title", &titles).Error
	if err != nil {
		return nil, translate(err, "message", instrumentID)
	}
	return titles, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
