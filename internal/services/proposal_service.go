package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/privacy"
	pgrepo "github.com/yoockh/recruitlink/internal/repositories/postgres"
	"github.com/yoockh/recruitlink/internal/utils"
	"gorm.io/datatypes"
)

type CreateProposalInput struct {
	CompanyID       string
	JobTitle        string
	CandidateName   string
	CandidateSkills []string
	Details         json.RawMessage

	Email       string
	Phone       string
	LinkedIn    string
	IsProtected *bool // defaults to true
}

// ProposalView is a proposal as seen by one viewer.
type ProposalView struct {
	*models.Proposal
	Contact              models.DisplayContact `json:"contact"`
	CV                   models.CVAsset        `json:"cv"`
	CanRequestFullAccess bool                  `json:"can_request_full_access"`
}

type ProposalService interface {
	Create(ctx context.Context, viewer models.Viewer, in CreateProposalInput) (*models.Proposal, error)
	Get(ctx context.Context, viewer models.Viewer, id string) (*ProposalView, error)
	Contact(ctx context.Context, viewer models.Viewer, id string) (models.DisplayContact, error)
	CVStatus(ctx context.Context, viewer models.Viewer, id string) (models.CVAsset, error)
	// Authorize loads the proposal if viewer is one of its parties.
	Authorize(ctx context.Context, viewer models.Viewer, id string) (*models.Proposal, error)
}

type proposalService struct {
	proposals pgrepo.ProposalRepository
}

func NewProposalService(proposals pgrepo.ProposalRepository) ProposalService {
	return &proposalService{proposals: proposals}
}

func (s *proposalService) Create(ctx context.Context, viewer models.Viewer, in CreateProposalInput) (*models.Proposal, error) {
	const op = "ProposalService.Create"

	if viewer.Role != models.RoleRecruiter {
		return nil, utils.E(utils.CodeForbidden, op, "only recruiters can submit proposals", nil)
	}
	if strings.TrimSpace(in.CompanyID) == "" || strings.TrimSpace(in.CandidateName) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "company_id and candidate_name are required", nil)
	}
	if len(in.Details) > 0 {
		if err := validateDetails(in.Details); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "details must be a flat json object", err)
		}
	}

	protected := true
	if in.IsProtected != nil {
		protected = *in.IsProtected
	}

	now := time.Now().UTC()
	p := &models.Proposal{
		ID:                uuid.NewString(),
		CompanyID:         strings.TrimSpace(in.CompanyID),
		RecruiterID:       viewer.UserID,
		JobTitle:          strings.TrimSpace(in.JobTitle),
		CandidateName:     strings.TrimSpace(in.CandidateName),
		CandidateSkills:   in.CandidateSkills,
		CandidateEmail:    strings.TrimSpace(in.Email),
		CandidatePhone:    strings.TrimSpace(in.Phone),
		CandidateLinkedIn: strings.TrimSpace(in.LinkedIn),
		IsProtected:       protected,
		AccessLevel:       models.AccessRestricted,
		ProcessingStatus:  models.StatusNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if len(in.Details) > 0 {
		p.Details = datatypes.JSON(in.Details)
	}

	if err := s.proposals.Create(ctx, p); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create proposal", err)
	}
	return p, nil
}

func (s *proposalService) Authorize(ctx context.Context, viewer models.Viewer, id string) (*models.Proposal, error) {
	const op = "ProposalService.Authorize"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "proposal_id is required", nil)
	}
	p, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "proposal not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load proposal", err)
	}
	if !p.IsParty(viewer) {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	return p, nil
}

func (s *proposalService) Get(ctx context.Context, viewer models.Viewer, id string) (*ProposalView, error) {
	p, err := s.Authorize(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	rec := p.Contact()
	return &ProposalView{
		Proposal:             p,
		Contact:              privacy.Evaluate(rec, viewer.Role),
		CV:                   cvFor(p, viewer.Role),
		CanRequestFullAccess: privacy.CanRequestFullAccess(rec, viewer.Role),
	}, nil
}

func (s *proposalService) Contact(ctx context.Context, viewer models.Viewer, id string) (models.DisplayContact, error) {
	p, err := s.Authorize(ctx, viewer, id)
	if err != nil {
		return models.DisplayContact{}, err
	}
	return privacy.Evaluate(p.Contact(), viewer.Role), nil
}

func (s *proposalService) CVStatus(ctx context.Context, viewer models.Viewer, id string) (models.CVAsset, error) {
	p, err := s.Authorize(ctx, viewer, id)
	if err != nil {
		return models.CVAsset{}, err
	}
	return cvFor(p, viewer.Role), nil
}

// cvFor hides the original CV from viewers that may not see the contact data.
func cvFor(p *models.Proposal, role models.UserRole) models.CVAsset {
	cv := p.CV()
	if !privacy.Reveals(p.Contact(), role) {
		cv.OriginalURL = ""
	}
	return cv
}
