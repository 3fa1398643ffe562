package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema mirrors the migrated Postgres tables in SQLite types.
const schema = `
CREATE TABLE proposals (
	id TEXT PRIMARY KEY,
	company_id TEXT,
	recruiter_id TEXT,
	job_title TEXT,
	candidate_name TEXT,
	candidate_skills TEXT,
	details TEXT,
	candidate_email TEXT,
	candidate_phone TEXT,
	candidate_linkedin TEXT,
	is_protected BOOLEAN DEFAULT 1,
	access_level TEXT DEFAULT 'restricted',
	cv_url TEXT,
	anonymized_url TEXT,
	processing_status TEXT DEFAULT 'none',
	cv_attempt_id TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE profiles (
	user_id TEXT PRIMARY KEY,
	email TEXT UNIQUE,
	full_name TEXT,
	role TEXT,
	company_name TEXT,
	phone_number TEXT,
	avatar_url TEXT,
	updated_at DATETIME
);
CREATE TABLE reviews (
	id TEXT PRIMARY KEY,
	company_id TEXT,
	recruiter_id TEXT,
	rating INTEGER,
	comment TEXT,
	created_at DATETIME
)`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return db
}

func seedProposal(t *testing.T, repo ProposalRepository) {
	t.Helper()
	err := repo.Create(context.Background(), &models.Proposal{
		ID:               "p1",
		CompanyID:        "comp-1",
		RecruiterID:      "rec-1",
		JobTitle:         "Go Developer",
		CandidateName:    "Mario Rossi",
		CandidateSkills:  []string{"go", "sql"},
		Details:          []byte(`{"remote":true}`),
		IsProtected:      true,
		AccessLevel:      models.AccessRestricted,
		ProcessingStatus: models.StatusNone,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
}

func TestProposalRepoTransitionCV(t *testing.T) {
	t.Parallel()

	repo := NewProposalRepo(newTestDB(t))
	ctx := context.Background()
	seedProposal(t, repo)

	if err := repo.StartCVAttempt(ctx, "p1", "a1", "https://files.test/cv/p1/original-a1.pdf"); err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	url := "https://files.test/cv/p1/anonymized-a1.pdf"

	tests := []struct {
		name    string
		attempt string
		to      models.ProcessingStatus
		url     *string
		stale   bool
	}{
		{name: "completed skips anonymizing", attempt: "a1", to: models.StatusCompleted, url: &url, stale: true},
		{name: "unknown attempt", attempt: "a0", to: models.StatusAnonymizing, stale: true},
		{name: "anonymizing", attempt: "a1", to: models.StatusAnonymizing},
		{name: "anonymizing twice", attempt: "a1", to: models.StatusAnonymizing, stale: true},
		{name: "completed", attempt: "a1", to: models.StatusCompleted, url: &url},
		{name: "error after completed", attempt: "a1", to: models.StatusError, stale: true},
		{name: "back to uploaded", attempt: "a1", to: models.StatusUploaded, stale: true},
	}
	for _, tc := range tests {
		err := repo.TransitionCV(ctx, "p1", tc.attempt, tc.to, tc.url)
		if tc.stale && !errors.Is(err, utils.ErrStaleAttempt) {
			t.Fatalf("%s: expected ErrStaleAttempt, got %v", tc.name, err)
		}
		if !tc.stale && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}

	p, err := repo.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.ProcessingStatus != models.StatusCompleted || p.CVAttemptID != "a1" {
		t.Fatalf("unexpected cv state %+v", p.CV())
	}
	if p.AnonymizedURL == nil || *p.AnonymizedURL != url {
		t.Fatalf("expected anonymized url %q, got %v", url, p.AnonymizedURL)
	}
	if len(p.CandidateSkills) != 2 || p.CandidateSkills[0] != "go" {
		t.Fatalf("skills not stored: %v", p.CandidateSkills)
	}
}

func TestProposalRepoNewAttemptResetsCV(t *testing.T) {
	t.Parallel()

	repo := NewProposalRepo(newTestDB(t))
	ctx := context.Background()
	seedProposal(t, repo)

	url := "https://files.test/cv/p1/anonymized-a1.pdf"
	steps := []func() error{
		func() error { return repo.StartCVAttempt(ctx, "p1", "a1", "https://files.test/cv/p1/original-a1.pdf") },
		func() error { return repo.TransitionCV(ctx, "p1", "a1", models.StatusAnonymizing, nil) },
		func() error { return repo.TransitionCV(ctx, "p1", "a1", models.StatusCompleted, &url) },
		func() error { return repo.StartCVAttempt(ctx, "p1", "a2", "https://files.test/cv/p1/original-a2.pdf") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	// the old attempt can no longer write
	if err := repo.TransitionCV(ctx, "p1", "a1", models.StatusError, nil); !errors.Is(err, utils.ErrStaleAttempt) {
		t.Fatalf("expected ErrStaleAttempt, got %v", err)
	}

	p, err := repo.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.CVAttemptID != "a2" || p.ProcessingStatus != models.StatusUploaded || p.AnonymizedURL != nil {
		t.Fatalf("expected fresh attempt, got %+v", p.CV())
	}
}

func TestProposalRepoNotFound(t *testing.T) {
	t.Parallel()

	repo := NewProposalRepo(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "nope"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if err := repo.StartCVAttempt(ctx, "nope", "a1", "x"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("start: expected ErrNotFound, got %v", err)
	}
	if err := repo.SetAccessLevel(ctx, "nope", models.AccessFull); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("access: expected ErrNotFound, got %v", err)
	}
	if err := repo.TransitionCV(ctx, "nope", "a1", models.StatusAnonymizing, nil); !errors.Is(err, utils.ErrStaleAttempt) {
		t.Fatalf("transition: expected ErrStaleAttempt, got %v", err)
	}
}

func TestProfileRepoUpsertAndLookup(t *testing.T) {
	t.Parallel()

	repo := NewProfileRepo(newTestDB(t))
	ctx := context.Background()

	p := &models.Profile{UserID: "comp-1", Email: "hr@acme.io", FullName: "Acme HR", Role: models.RoleCompany, UpdatedAt: time.Now().UTC()}
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	p.FullName = "Acme Talent"
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByEmail(ctx, "HR@Acme.io")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if got.FullName != "Acme Talent" {
		t.Fatalf("upsert did not update, got %+v", got)
	}

	if err := repo.SetAvatar(ctx, "comp-1", "https://cdn.test/avatars/comp-1/a.png"); err != nil {
		t.Fatalf("avatar: %v", err)
	}
	got, err = repo.GetByUserID(ctx, "comp-1")
	if err != nil || got.AvatarURL == "" {
		t.Fatalf("avatar not stored: %+v %v", got, err)
	}

	if _, err := repo.GetByEmail(ctx, "ghost@acme.io"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.SetAvatar(ctx, "ghost", "x"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReviewRepoSummary(t *testing.T) {
	t.Parallel()

	repo := NewReviewRepo(newTestDB(t))
	ctx := context.Background()

	sum, err := repo.Summary(ctx, "rec-1")
	if err != nil {
		t.Fatalf("empty summary: %v", err)
	}
	if sum.Count != 0 || sum.Average != 0 {
		t.Fatalf("expected empty summary, got %+v", sum)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, rating := range []int{3, 4, 5} {
		rv := &models.Review{ID: "r" + string(rune('1'+i)), CompanyID: "comp-1", RecruiterID: "rec-1", Rating: rating, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Insert(ctx, rv); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := repo.Insert(ctx, &models.Review{ID: "other", RecruiterID: "rec-2", Rating: 1, CreatedAt: base}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sum, err = repo.Summary(ctx, "rec-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Count != 3 || sum.Average != 4 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	list, err := repo.ListByRecruiter(ctx, "rec-1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r3" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}
