package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/privacy"
	pgrepo "github.com/yoockh/recruitlink/internal/repositories/postgres"
	"github.com/yoockh/recruitlink/internal/utils"
)

type AccessService interface {
	// RequestFullAccess asks the recruiter of a protected, restricted proposal
	// to reveal the candidate contact. Not idempotent: every call notifies.
	RequestFullAccess(ctx context.Context, viewer models.Viewer, proposalID string) error
	// GrantAccess changes the access level of a proposal. Owning recruiter only.
	GrantAccess(ctx context.Context, viewer models.Viewer, proposalID string, level models.AccessLevel) (*models.Proposal, error)
}

type accessService struct {
	proposals pgrepo.ProposalRepository
	notifier  Notifier
}

func NewAccessService(proposals pgrepo.ProposalRepository, notifier Notifier) AccessService {
	return &accessService{proposals: proposals, notifier: notifier}
}

func (s *accessService) load(ctx context.Context, op, proposalID string) (*models.Proposal, error) {
	if proposalID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "proposal_id is required", nil)
	}
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "proposal not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load proposal", err)
	}
	return p, nil
}

func (s *accessService) RequestFullAccess(ctx context.Context, viewer models.Viewer, proposalID string) error {
	const op = "AccessService.RequestFullAccess"

	if viewer.Role != models.RoleCompany {
		return utils.E(utils.CodeForbidden, op, "only companies can request contact access", nil)
	}
	p, err := s.load(ctx, op, proposalID)
	if err != nil {
		return err
	}
	if p.CompanyID != viewer.UserID {
		return utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	if !privacy.CanRequestFullAccess(p.Contact(), viewer.Role) {
		return utils.E(utils.CodeFailedPrecondition, op, "contact details are not restricted", nil)
	}

	err = s.notifier.Notify(ctx, &models.Notification{
		RecipientID: p.RecruiterID,
		Type:        models.NotifyAccessRequested,
		ProposalID:  p.ID,
		ActorID:     viewer.UserID,
		Message:     fmt.Sprintf("A company asked for the contact details of %s (%s)", p.CandidateName, p.JobTitle),
	})
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to send access request", err)
	}
	return nil
}

func (s *accessService) GrantAccess(ctx context.Context, viewer models.Viewer, proposalID string, level models.AccessLevel) (*models.Proposal, error) {
	const op = "AccessService.GrantAccess"

	if !level.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "access_level must be restricted, partial or full", nil)
	}
	if viewer.Role != models.RoleRecruiter {
		return nil, utils.E(utils.CodeForbidden, op, "only the recruiter can change access", nil)
	}
	p, err := s.load(ctx, op, proposalID)
	if err != nil {
		return nil, err
	}
	if p.RecruiterID != viewer.UserID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	if p.AccessLevel == level {
		return p, nil
	}

	if err := s.proposals.SetAccessLevel(ctx, p.ID, level); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update access level", err)
	}
	p.AccessLevel = level

	// the grant is already stored; a lost notification is acceptable
	_ = s.notifier.Notify(ctx, &models.Notification{
		RecipientID: p.CompanyID,
		Type:        models.NotifyAccessGranted,
		ProposalID:  p.ID,
		ActorID:     viewer.UserID,
		Message:     fmt.Sprintf("Contact access for %s is now %s", p.CandidateName, level),
	})
	return p, nil
}
