package repository

import (
	"context"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"

	"gorm.io/gorm"
)

// SourceRepository stores message sources.
type SourceRepository struct {
	db *gorm.DB
}

func NewSourceRepository(db *gorm.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

var _ domrepo.SourceStore = (*SourceRepository)(nil)

func (r *SourceRepository) Create(ctx context.Context, s *models.Source) error {
	return translate(r.db.WithContext(ctx).Create(s).Error, "source", s.Name)
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*models.Source, error) {
	var s models.Source
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err, "source", id)
	}
	return &s, nil
}

func (r *SourceRepository) GetByName(ctx context.Context, name string) (*models.Source, error) {
	var s models.Source
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&s).Error; err != nil {
		return nil, translate(err, "source", name)
	}
	return &s, nil
}

func (r *SourceRepository) List(ctx context.Context) ([]*models.Source, error) {
	var out []*models.Source
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, translate(err, "source", "*")
	}
	return out, nil
}

func (r *SourceRepository) UpdateReputation(ctx context.Context, id string, score float64) (*models.Source, error) {
	var s models.Source
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&s).Error; err != nil {
			return err
		}
		s.ReputationScore = score
		return tx.Model(&s).Update("reputation_score", score).Error
	})
	if err != nil {
		return nil, translate(err, "source", id)
	}
	return &s, nil
}
