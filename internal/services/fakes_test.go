package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
)

type fakeProposals struct {
	mu      sync.Mutex
	rows    map[string]*models.Proposal
	history map[string][]models.ProcessingStatus
	calls   int
}

func newFakeProposals(ps ...*models.Proposal) *fakeProposals {
	f := &fakeProposals{rows: map[string]*models.Proposal{}, history: map[string][]models.ProcessingStatus{}}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProposals) Create(_ context.Context, p *models.Proposal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeProposals) GetByID(_ context.Context, id string) (*models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProposals) StartCVAttempt(_ context.Context, id, attemptID, cvURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	p.CVURL = cvURL
	p.CVAttemptID = attemptID
	p.AnonymizedURL = nil
	p.ProcessingStatus = models.StatusUploaded
	f.history[id] = append(f.history[id], models.StatusUploaded)
	return nil
}

func (f *fakeProposals) TransitionCV(ctx context.Context, id, attemptID string, to models.ProcessingStatus, anonymizedURL *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.rows[id]
	if !ok || p.CVAttemptID != attemptID || !models.CanTransition(p.ProcessingStatus, to) {
		return utils.ErrStaleAttempt
	}
	p.ProcessingStatus = to
	if anonymizedURL != nil {
		u := *anonymizedURL
		p.AnonymizedURL = &u
	}
	f.history[id] = append(f.history[id], to)
	return nil
}

func (f *fakeProposals) SetAccessLevel(_ context.Context, id string, level models.AccessLevel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	p.AccessLevel = level
	return nil
}

func (f *fakeProposals) row(id string) models.Proposal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

func (f *fakeProposals) statuses(id string) []models.ProcessingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ProcessingStatus(nil), f.history[id]...)
}

func (f *fakeProposals) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractText(ctx context.Context, doc []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeRedactor struct {
	fn    func(ctx context.Context, text string) (string, error)
	calls int
}

func (f *fakeRedactor) Redact(ctx context.Context, correlationID, text string) (string, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(ctx, text)
	}
	return strings.ReplaceAll(text, "Mario Rossi", "[CANDIDATE]"), nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, title, text string) ([]byte, error) {
	return []byte("%PDF-1.4\n" + title + "\n" + text), nil
}

// syncDispatcher runs the job inline so tests observe the full attempt.
type syncDispatcher struct {
	svc  CVPipelineService
	err  error
	jobs []AnonymizeJob
	errs []error
}

func (d *syncDispatcher) Dispatch(ctx context.Context, job AnonymizeJob) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	if d.svc != nil {
		d.errs = append(d.errs, d.svc.Anonymize(ctx, job))
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.CVStatusEvent
}

func (f *fakePublisher) PublishCVStatus(_ context.Context, ev models.CVStatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) statuses() []models.ProcessingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ProcessingStatus, len(f.events))
	for i, e := range f.events {
		out[i] = e.Status
	}
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type fakeProfiles struct {
	mu      sync.Mutex
	rows    map[string]*models.Profile
	byEmail int
}

func newFakeProfiles(ps ...*models.Profile) *fakeProfiles {
	f := &fakeProfiles{rows: map[string]*models.Profile{}}
	for _, p := range ps {
		f.rows[p.UserID] = p
	}
	return f
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail++
	for _, p := range f.rows {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeProfiles) Upsert(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.rows[p.UserID] = &cp
	return nil
}

func (f *fakeProfiles) SetAvatar(_ context.Context, userID, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return utils.ErrNotFound
	}
	p.AvatarURL = avatarURL
	return nil
}

type fakeReviews struct {
	mu       sync.Mutex
	rows     []models.Review
	summarys int
}

func (f *fakeReviews) Insert(_ context.Context, rv *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *rv)
	return nil
}

func (f *fakeReviews) Summary(_ context.Context, recruiterID string) (*models.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarys++
	out := &models.RatingSummary{RecruiterID: recruiterID}
	total := 0
	for _, r := range f.rows {
		if r.RecruiterID == recruiterID {
			out.Count++
			total += r.Rating
		}
	}
	if out.Count > 0 {
		out.Average = float64(total) / float64(out.Count)
	}
	return out, nil
}

func (f *fakeReviews) ListByRecruiter(_ context.Context, recruiterID string, limit int) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Review
	for _, r := range f.rows {
		if r.RecruiterID == recruiterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var errBoom = errors.New("boom")
