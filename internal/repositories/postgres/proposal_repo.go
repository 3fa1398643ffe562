package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
	"gorm.io/gorm"
)

type ProposalRepository interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	// StartCVAttempt replaces the CV of a proposal with a fresh attempt in status uploaded.
	StartCVAttempt(ctx context.Context, id, attemptID, cvURL string) error
	// TransitionCV moves the given attempt to status `to`. It returns
	// utils.ErrStaleAttempt when the attempt is no longer current or is not in
	// a status that may precede `to`.
	TransitionCV(ctx context.Context, id, attemptID string, to models.ProcessingStatus, anonymizedURL *string) error
	SetAccessLevel(ctx context.Context, id string, level models.AccessLevel) error
}

type proposalRepo struct {
	db *gorm.DB
}

func NewProposalRepo(db *gorm.DB) ProposalRepository {
	return &proposalRepo{db: db}
}

func (r *proposalRepo) Create(ctx context.Context, p *models.Proposal) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *proposalRepo) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	var p models.Proposal
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *proposalRepo) StartCVAttempt(ctx context.Context, id, attemptID, cvURL string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"cv_url":            cvURL,
			"cv_attempt_id":     attemptID,
			"anonymized_url":    nil,
			"processing_status": models.StatusUploaded,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *proposalRepo) TransitionCV(ctx context.Context, id, attemptID string, to models.ProcessingStatus, anonymizedURL *string) error {
	preds := models.Predecessors(to)
	if len(preds) == 0 {
		return utils.ErrStaleAttempt
	}
	from := make([]string, len(preds))
	for i, st := range preds {
		from[i] = string(st)
	}

	fields := map[string]any{
		"processing_status": to,
		"updated_at":        time.Now().UTC(),
	}
	if anonymizedURL != nil {
		fields["anonymized_url"] = *anonymizedURL
	}

	res := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND cv_attempt_id = ? AND processing_status IN ?", id, attemptID, from).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrStaleAttempt
	}
	return nil
}

func (r *proposalRepo) SetAccessLevel(ctx context.Context, id string, level models.AccessLevel) error {
	res := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", id).
		Updates(map[string]any{"access_level": level, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
