package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"

	"gorm.io/gorm"
)

// AggregateRepository persists aggregated sentiments.
type AggregateRepository struct {
	db *gorm.DB
}

func NewAggregateRepository(db *gorm.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

var _ domrepo.AggregateStore = (*AggregateRepository)(nil)

// Create stores a. It fails with ErrDuplicateWindow when the window exists and with
// ErrConflict when the window's messages changed since a was folded.
func (r *AggregateRepository) Create(ctx context.Context, a *models.AggregatedSentiment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertAggregate(tx, a)
	})
	return aggregateError(err, a)
}

// CreateWithOpinion stores a and o in one transaction. o is attached to a; nothing is
// kept when either insert fails.
func (r *AggregateRepository) CreateWithOpinion(ctx context.Context, a *models.AggregatedSentiment, o *models.LLMOpinion) error {
	var opinionErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertAggregate(tx, a); err != nil {
			return err
		}
		o.InstrumentID = a.InstrumentID
		o.AggregatedSentimentID = a.ID
		if err := tx.Create(o).Error; err != nil {
			opinionErr = err
			return err
		}
		return nil
	})
	if err != nil && opinionErr != nil {
		return fmt.Errorf("store opinion: %w", translate(opinionErr, "opinion", a.ID))
	}
	return aggregateError(err, a)
}

func insertAggregate(tx *gorm.DB, a *models.AggregatedSentiment) error {
	if err := lockInstrument(tx, a.InstrumentID); err != nil {
		return err
	}
	n, err := countWindow(tx, a.InstrumentID, a.Window())
	if err != nil {
		return err
	}
	if n != int64(a.MessageCount) {
		return fmt.Errorf("window holds %d messages, folded %d: %w", n, a.MessageCount, models.ErrConflict)
	}
	return tx.Create(a).Error
}

func aggregateError(err error, a *models.AggregatedSentiment) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s [%s, %s): %w", a.InstrumentID,
			a.PeriodStart.Format(time.RFC3339), a.PeriodEnd.Format(time.RFC3339), models.ErrDuplicateWindow)
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrConflict):
		return err
	default:
		return translate(err, "aggregated sentiment", a.InstrumentID)
	}
}

func (r *AggregateRepository) Overlapping(ctx context.Context, instrumentID string, w models.Window) (*models.AggregatedSentiment, error) {
	var a models.AggregatedSentiment
	err := r.db.WithContext(ctx).
		Where("instrument_id = ? AND period_start < ? AND period_end > ?", instrumentID, w.End.UTC(), w.Start.UTC()).
		Order("period_start ASC").
		First(&a).Error
	return firstOrNil(&a, err, "aggregated sentiment", instrumentID)
}

func (r *AggregateRepository) Latest(ctx context.Context, instrumentID string) (*models.AggregatedSentiment, error) {
	var a models.AggregatedSentiment
	err := r.db.WithContext(ctx).
		Where("instrument_id = ?", instrumentID).
		Order("period_end DESC").
		First(&a).Error
	return firstOrNil(&a, err, "aggregated sentiment", instrumentID)
}

// Range returns the aggregates whose window starts in [from, to), oldest first.
func (r *AggregateRepository) Range(ctx context.Context, instrumentID string, from, to time.Time) ([]*models.AggregatedSentiment, error) {
	var out []*models.AggregatedSentiment
	err := r.db.WithContext(ctx).
		Where("instrument_id = ? AND period_start >= ? AND period_start < ?", instrumentID, from.UTC(), to.UTC()).
		Order("period_end ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "aggregated sentiment", instrumentID)
	}
	return out, nil
}
