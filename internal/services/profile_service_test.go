package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yoockh/recruitlink/internal/cache"
	"github.com/yoockh/recruitlink/internal/logger"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/storage"
	"github.com/yoockh/recruitlink/internal/utils"
)

func newProfileFixture() (ProfileService, *fakeProfiles, *storage.MemoryStore) {
	profiles := newFakeProfiles(&models.Profile{
		UserID:   companyID,
		Email:    "hr@acme.io",
		FullName: "Acme HR",
		Role:     models.RoleCompany,
	})
	store := storage.NewMemoryStore("https://cdn.test")
	c := cache.NewMemoryCache(16, cache.SystemClock)
	return NewProfileService(profiles, c, time.Minute, store, logger.Discard()), profiles, store
}

func TestLookupByEmailIsCached(t *testing.T) {
	t.Parallel()

	svc, profiles, _ := newProfileFixture()
	for i := 0; i < 3; i++ {
		p, err := svc.LookupByEmail(context.Background(), "  HR@Acme.io ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.UserID != companyID {
			t.Fatalf("unexpected profile %+v", p)
		}
	}
	if profiles.byEmail != 1 {
		t.Fatalf("expected one repository lookup, got %d", profiles.byEmail)
	}

	if _, err := svc.LookupByEmail(context.Background(), "ghost@acme.io"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.LookupByEmail(context.Background(), " "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestUpsertInvalidatesOldAndNewEmail(t *testing.T) {
	t.Parallel()

	svc, profiles, _ := newProfileFixture()
	if _, err := svc.LookupByEmail(context.Background(), "hr@acme.io"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.Upsert(context.Background(), &models.Profile{UserID: companyID, Email: "Talent@Acme.io", Role: models.RoleCompany})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.LookupByEmail(context.Background(), "hr@acme.io"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("old email must not be served from cache, got %v", err)
	}
	p, err := svc.LookupByEmail(context.Background(), "talent@acme.io")
	if err != nil || p.Email != "talent@acme.io" {
		t.Fatalf("expected normalized new email, got %+v %v", p, err)
	}
	if profiles.byEmail != 3 {
		t.Fatalf("expected 3 repository lookups, got %d", profiles.byEmail)
	}

	if err := svc.Upsert(context.Background(), &models.Profile{UserID: companyID, Role: "boss"}); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestUploadAvatar(t *testing.T) {
	t.Parallel()

	svc, profiles, store := newProfileFixture()
	if _, err := svc.LookupByEmail(context.Background(), "hr@acme.io"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	png := append([]byte("\x89PNG\x0D\x0A\x1A\x0A"), bytes.Repeat([]byte{0}, 64)...)
	p, err := svc.UploadAvatar(context.Background(), companyID, bytes.NewReader(png))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(p.AvatarURL, "https://cdn.test/avatars/"+companyID+"/") || !strings.HasSuffix(p.AvatarURL, ".png") {
		t.Fatalf("unexpected avatar url %q", p.AvatarURL)
	}
	if store.Uploads() != 1 {
		t.Fatalf("expected one upload, got %d", store.Uploads())
	}

	got, err := svc.LookupByEmail(context.Background(), "hr@acme.io")
	if err != nil || got.AvatarURL != p.AvatarURL {
		t.Fatalf("cached profile was not invalidated: %+v %v", got, err)
	}
	if profiles.byEmail != 2 {
		t.Fatalf("expected cache refill after avatar change, got %d lookups", profiles.byEmail)
	}
}

func TestUploadAvatarRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "pdf", data: []byte("%PDF-1.4 not an image")},
		{name: "too large", data: append([]byte("\x89PNG\x0D\x0A\x1A\x0A"), make([]byte, MaxAvatarBytes)...)},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, _, store := newProfileFixture()
			if _, err := svc.UploadAvatar(context.Background(), companyID, bytes.NewReader(tc.data)); !utils.IsCode(err, utils.CodeInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
			if store.Uploads() != 0 {
				t.Fatalf("rejected avatar must not be uploaded")
			}
		})
	}
}
