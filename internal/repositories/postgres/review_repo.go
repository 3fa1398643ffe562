package postgres

import (
	"context"

	"github.com/yoockh/recruitlink/internal/models"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Insert(ctx context.Context, rv *models.Review) error
	Summary(ctx context.Context, recruiterID string) (*models.RatingSummary, error)
	ListByRecruiter(ctx context.Context, recruiterID string, limit int) ([]models.Review, error)
}

type reviewRepo struct {
	db *gorm.DB
}

func NewReviewRepo(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Insert(ctx context.Context, rv *models.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *reviewRepo) Summary(ctx context.Context, recruiterID string) (*models.RatingSummary, error) {
	var row struct {
		Count   int64
		Average float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("count(*) AS count, coalesce(avg(rating), 0) AS average").
		Where("recruiter_id = ?", recruiterID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &models.RatingSummary{RecruiterID: recruiterID, Count: row.Count, Average: row.Average}, nil
}

func (r *reviewRepo) ListByRecruiter(ctx context.Context, recruiterID string, limit int) ([]models.Review, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
