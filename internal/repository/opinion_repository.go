package repository

import (
	"context"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"

	"gorm.io/gorm"
)

type OpinionRepository struct {
	db *gorm.DB
}

func NewOpinionRepository(db *gorm.DB) *OpinionRepository {
	return &OpinionRepository{db: db}
}

var _ domrepo.OpinionStore = (*OpinionRepository)(nil)

func (r *OpinionRepository) ByAggregate(ctx context.Context, aggregateID string) (*models.LLMOpinion, error) {
	var o models.LLMOpinion
	err := r.db.WithContext(ctx).Where("aggregated_sentiment_id = ?", aggregateID).First(&o).Error
	return firstOrNil(&o, err, "opinion", aggregateID)
}
