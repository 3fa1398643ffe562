package services

import (
	"context"
	"testing"

	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
)

func accessProposal(level models.AccessLevel, protected bool) *models.Proposal {
	return &models.Proposal{
		ID:             "p1",
		CompanyID:      companyID,
		RecruiterID:    recruiterID,
		JobTitle:       "Data Engineer",
		CandidateName:  "Anna",
		CandidateEmail: "anna@example.com",
		IsProtected:    protected,
		AccessLevel:    level,
	}
}

var company = models.Viewer{UserID: companyID, Role: models.RoleCompany}

func TestRequestFullAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		proposal  *models.Proposal
		viewer    models.Viewer
		wantCode  utils.Code
		wantNotif bool
	}{
		{name: "restricted", proposal: accessProposal(models.AccessRestricted, true), viewer: company, wantNotif: true},
		{name: "already full", proposal: accessProposal(models.AccessFull, true), viewer: company, wantCode: utils.CodeFailedPrecondition},
		{name: "partial", proposal: accessProposal(models.AccessPartial, true), viewer: company, wantCode: utils.CodeFailedPrecondition},
		{name: "unprotected", proposal: accessProposal(models.AccessRestricted, false), viewer: company, wantCode: utils.CodeFailedPrecondition},
		{name: "recruiter", proposal: accessProposal(models.AccessRestricted, true), viewer: recruiter, wantCode: utils.CodeForbidden},
		{name: "other company", proposal: accessProposal(models.AccessRestricted, true), viewer: models.Viewer{UserID: "comp-2", Role: models.RoleCompany}, wantCode: utils.CodeForbidden},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			notifier := &fakeNotifier{}
			svc := NewAccessService(newFakeProposals(tc.proposal), notifier)

			err := svc.RequestFullAccess(context.Background(), tc.viewer, "p1")
			if tc.wantCode == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantCode != "" && !utils.IsCode(err, tc.wantCode) {
				t.Fatalf("expected %s, got %v", tc.wantCode, err)
			}
			if got := len(notifier.sent) == 1; got != tc.wantNotif {
				t.Fatalf("expected notification=%v, got %d sent", tc.wantNotif, len(notifier.sent))
			}
			if tc.wantNotif {
				n := notifier.sent[0]
				if n.RecipientID != recruiterID || n.Type != models.NotifyAccessRequested || n.ActorID != companyID {
					t.Fatalf("unexpected notification %+v", n)
				}
			}
		})
	}
}

func TestRequestFullAccessIsNotIdempotent(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	svc := NewAccessService(newFakeProposals(accessProposal(models.AccessRestricted, true)), notifier)
	for i := 0; i < 2; i++ {
		if err := svc.RequestFullAccess(context.Background(), company, "p1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected one notification per request, got %d", len(notifier.sent))
	}
}

func TestRequestFullAccessDeliveryFailure(t *testing.T) {
	t.Parallel()

	svc := NewAccessService(newFakeProposals(accessProposal(models.AccessRestricted, true)), &fakeNotifier{err: errBoom})
	if err := svc.RequestFullAccess(context.Background(), company, "p1"); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := svc.RequestFullAccess(context.Background(), company, "nope"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGrantAccess(t *testing.T) {
	t.Parallel()

	proposals := newFakeProposals(accessProposal(models.AccessRestricted, true))
	notifier := &fakeNotifier{}
	svc := NewAccessService(proposals, notifier)

	if _, err := svc.GrantAccess(context.Background(), company, "p1", models.AccessFull); !utils.IsCode(err, utils.CodeForbidden) {
		t.Fatalf("expected forbidden for company, got %v", err)
	}
	if _, err := svc.GrantAccess(context.Background(), recruiter, "p1", "everything"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	p, err := svc.GrantAccess(context.Background(), recruiter, "p1", models.AccessFull)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AccessLevel != models.AccessFull || proposals.row("p1").AccessLevel != models.AccessFull {
		t.Fatalf("access level not stored")
	}
	if len(notifier.sent) != 1 || notifier.sent[0].RecipientID != companyID || notifier.sent[0].Type != models.NotifyAccessGranted {
		t.Fatalf("expected grant notification to the company, got %+v", notifier.sent)
	}

	// no change, no notification
	if _, err := svc.GrantAccess(context.Background(), recruiter, "p1", models.AccessFull); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("unchanged level must not notify")
	}
}

func TestGrantAccessSurvivesNotifierFailure(t *testing.T) {
	t.Parallel()

	proposals := newFakeProposals(accessProposal(models.AccessRestricted, true))
	svc := NewAccessService(proposals, &fakeNotifier{err: errBoom})
	if _, err := svc.GrantAccess(context.Background(), recruiter, "p1", models.AccessPartial); err != nil {
		t.Fatalf("grant must not fail on notification errors: %v", err)
	}
	if proposals.row("p1").AccessLevel != models.AccessPartial {
		t.Fatalf("access level not stored")
	}
}
