package repository

import (
	"context"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"

	"gorm.io/gorm"
)

// InstrumentRepository stores instruments in the relational store.
type InstrumentRepository struct {
	db *gorm.DB
}

func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

var _ domrepo.InstrumentStore = (*InstrumentRepository)(nil)

func (r *InstrumentRepository) Create(ctx context.Context, i *models.Instrument) error {
	return translate(r.db.WithContext(ctx).Create(i).Error, "instrument", i.Ticker)
}

func (r *InstrumentRepository) GetByID(ctx context.Context, id string) (*models.Instrument, error) {
	var i models.Instrument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&i).Error; err != nil {
		return nil, translate(err, "instrument", id)
	}
	return &i, nil
}

func (r *InstrumentRepository) GetByTicker(ctx context.Context, ticker string) (*models.Instrument, error) {
	var i models.Instrument
	if err := r.db.WithContext(ctx).Where("ticker = ?", ticker).First(&i).Error; err != nil {
		return nil, translate(err, "instrument", ticker)
	}
	return &i, nil
}

func (r *InstrumentRepository) List(ctx context.Context) ([]*models.Instrument, error) {
	var out []*models.Instrument
	if err := r.db.WithContext(ctx).Order("ticker ASC").Find(&out).Error; err != nil {
		return nil, translate(err, "instrument", "*")
	}
	return out, nil
}
