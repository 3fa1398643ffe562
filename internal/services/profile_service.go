package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/recruitlink/internal/cache"
	"github.com/yoockh/recruitlink/internal/models"
	pgrepo "github.com/yoockh/recruitlink/internal/repositories/postgres"
	"github.com/yoockh/recruitlink/internal/storage"
	"github.com/yoockh/recruitlink/internal/utils"
)

const MaxAvatarBytes = 5 << 20

var avatarExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

type ProfileService interface {
	GetMe(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	// LookupByEmail is cached; the marketplace resolves profiles by email on every dashboard render.
	LookupByEmail(ctx context.Context, email string) (*models.Profile, error)
	UploadAvatar(ctx context.Context, userID string, r io.Reader) (*models.Profile, error)
}

type profileService struct {
	profiles pgrepo.ProfileRepository
	cache    cache.Cache
	ttl      time.Duration
	uploader storage.Uploader
	log      *logrus.Logger
}

func NewProfileService(profiles pgrepo.ProfileRepository, c cache.Cache, ttl time.Duration, uploader storage.Uploader, log *logrus.Logger) ProfileService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logrus.New()
	}
	return &profileService{profiles: profiles, cache: c, ttl: ttl, uploader: uploader, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *profileService) GetMe(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "ProfileService.GetMe"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get profile", err)
	}
	return p, nil
}

func (s *profileService) Upsert(ctx context.Context, p *models.Profile) error {
	const op = "ProfileService.Upsert"

	if p == nil || p.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "profile.user_id is required", nil)
	}
	if p.Role != "" && !p.Role.Valid() {
		return utils.E(utils.CodeInvalidArgument, op, "role must be company or recruiter", nil)
	}
	p.Email = normalizeEmail(p.Email)

	// drop the cached entry of the previous email too
	var stale []string
	if old, err := s.profiles.GetByUserID(ctx, p.UserID); err == nil && old.Email != "" && old.Email != p.Email {
		stale = append(stale, cache.ProfileByEmailKey(old.Email))
	}

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to upsert profile", err)
	}
	if p.Email != "" {
		stale = append(stale, cache.ProfileByEmailKey(p.Email))
	}
	s.invalidate(ctx, stale...)
	return nil
}

func (s *profileService) LookupByEmail(ctx context.Context, email string) (*models.Profile, error) {
	const op = "ProfileService.LookupByEmail"

	email = normalizeEmail(email)
	if email == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email is required", nil)
	}

	key := cache.ProfileByEmailKey(email)
	if s.cache != nil {
		var cached models.Profile
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).Warn("profile cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get profile", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, p, s.ttl); err != nil {
			s.log.WithError(err).Warn("profile cache write failed")
		}
	}
	return p, nil
}

func (s *profileService) UploadAvatar(ctx context.Context, userID string, r io.Reader) (*models.Profile, error) {
	const op = "ProfileService.UploadAvatar"

	if userID == "" || r == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and file are required", nil)
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read upload", err)
	}
	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}
	if len(data) > MaxAvatarBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file too large (max 5MB)", nil)
	}
	ct := http.DetectContentType(data)
	ext, ok := avatarExt[ct]
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "avatar must be png, jpeg or webp", nil)
	}
	if s.uploader == nil {
		return nil, utils.E(utils.CodeInternal, op, "uploader is not configured", nil)
	}

	p, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("%s/%s/%s.%s", storage.FolderAvatars, userID, uuid.NewString(), ext)
	url, err := s.uploader.Upload(ctx, objectName, ct, bytes.NewReader(data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload avatar", err)
	}
	if err := s.profiles.SetAvatar(ctx, userID, url); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save avatar", err)
	}

	p.AvatarURL = url
	if p.Email != "" {
		s.invalidate(ctx, cache.ProfileByEmailKey(p.Email))
	}
	return p, nil
}

func (s *profileService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.WithError(err).Warn("profile cache invalidation failed")
	}
}
