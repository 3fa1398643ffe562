package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	SetAvatar(ctx context.Context, userID, avatarURL string) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(email)).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "role", "company_name", "phone_number", "avatar_url", "updated_at"}),
		}).
		Create(p).Error
}

func (r *profileRepo) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"avatar_url": avatarURL, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
