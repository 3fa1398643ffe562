package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/recruitlink/internal/locks"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/providers/llm"
	"github.com/yoockh/recruitlink/internal/providers/pdf"
	pgrepo "github.com/yoockh/recruitlink/internal/repositories/postgres"
	"github.com/yoockh/recruitlink/internal/storage"
	"github.com/yoockh/recruitlink/internal/utils"
)

const (
	MaxCVBytes = 10 << 20
	pdfMime    = "application/pdf"
)

type UploadInput struct {
	Viewer        models.Viewer
	CorrelationID string // proposal id; empty for a CV not yet linked to a proposal
	FileName      string
	Size          int64
	ContentType   string // as declared by the client, may be empty
	Body          io.Reader
}

type UploadResult struct {
	OriginalURL string                  `json:"original_url"`
	ObjectName  string                  `json:"object_name"`
	AttemptID   string                  `json:"attempt_id,omitempty"`
	Status      models.ProcessingStatus `json:"processing_status"`
	Message     string                  `json:"message,omitempty"`
}

type AnonymizeJob struct {
	ProposalID string `json:"proposal_id"`
	AttemptID  string `json:"attempt_id"`
	ObjectName string `json:"object_name"`
	// Content is the original pdf when the job runs in the uploading process.
	Content []byte `json:"-"`
	// Reclaimed marks a job taken over from a consumer that stopped mid-run.
	Reclaimed bool `json:"-"`
}

type AnonymizeDispatcher interface {
	Dispatch(ctx context.Context, job AnonymizeJob) error
}

type CVStatusPublisher interface {
	PublishCVStatus(ctx context.Context, ev models.CVStatusEvent) error
}

type CVPipelineService interface {
	// Upload validates and stores the original CV and, when linked to a
	// proposal, starts a new anonymization attempt. It returns as soon as the
	// original is stored; anonymization runs through the dispatcher.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	// Anonymize runs extraction, redaction and publication for one attempt.
	Anonymize(ctx context.Context, job AnonymizeJob) error
}

type CVPipelineConfig struct {
	Proposals  pgrepo.ProposalRepository
	Store      storage.Store
	Extractor  pdf.Extractor
	Redactor   llm.Redactor
	Renderer   pdf.Renderer
	Dispatcher AnonymizeDispatcher
	Publisher  CVStatusPublisher // optional
	Notifier   Notifier          // optional
	Locker     locks.Locker
	Logger     *logrus.Logger

	// AttemptLease bounds how long a proposal stays locked by one attempt.
	AttemptLease time.Duration
	// StatusWriteTimeout bounds the error/unlock writes made after ctx is done.
	StatusWriteTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

type cvPipelineService struct {
	cfg CVPipelineConfig
}

func NewCVPipelineService(cfg CVPipelineConfig) CVPipelineService {
	if cfg.AttemptLease <= 0 {
		cfg.AttemptLease = 5 * time.Minute
	}
	if cfg.StatusWriteTimeout <= 0 {
		cfg.StatusWriteTimeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Locker == nil {
		cfg.Locker = locks.NewMemoryLocker(cfg.Now)
	}
	return &cvPipelineService{cfg: cfg}
}

func attemptLockKey(proposalID string) string { return "cv-attempt:" + proposalID }

func OriginalObjectName(proposalID, attemptID string) string {
	return fmt.Sprintf("%s/%s/original-%s.pdf", storage.FolderCV, proposalID, attemptID)
}

func AnonymizedObjectName(proposalID, attemptID string) string {
	return fmt.Sprintf("%s/%s/anonymized-%s.pdf", storage.FolderCV, proposalID, attemptID)
}

func unlinkedObjectName(now time.Time) string {
	return fmt.Sprintf("%s/unlinked/%d.pdf", storage.FolderCV, now.UnixNano())
}

// validateCVHeader rejects what can be judged from the metadata alone.
func validateCVHeader(op string, in UploadInput) error {
	if !strings.EqualFold(filepath.Ext(in.FileName), ".pdf") {
		return utils.E(utils.CodeInvalidArgument, op, "only .pdf files are allowed", nil)
	}
	if ct := strings.ToLower(strings.TrimSpace(in.ContentType)); ct != "" && !strings.HasPrefix(ct, pdfMime) && ct != "application/octet-stream" {
		return utils.E(utils.CodeInvalidArgument, op, "only .pdf files are allowed", nil)
	}
	if in.Size > MaxCVBytes {
		return utils.E(utils.CodeInvalidArgument, op, "file too large (max 10MB)", nil)
	}
	if in.Body == nil || in.Size < 0 {
		return utils.E(utils.CodeInvalidArgument, op, "file is required", nil)
	}
	return nil
}

// readCV reads at most MaxCVBytes and checks the pdf signature.
func readCV(op string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxCVBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read upload", err)
	}
	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}
	if len(data) > MaxCVBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file too large (max 10MB)", nil)
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if http.DetectContentType(head) != pdfMime {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid content type (must be pdf)", nil)
	}
	return data, nil
}

func (s *cvPipelineService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	const op = "CVPipelineService.Upload"

	if err := validateCVHeader(op, in); err != nil {
		return nil, err
	}
	data, err := readCV(op, in.Body)
	if err != nil {
		return nil, err
	}
	if in.Viewer.Role != models.RoleRecruiter {
		return nil, utils.E(utils.CodeForbidden, op, "only recruiters can upload candidate CVs", nil)
	}

	proposalID := strings.TrimSpace(in.CorrelationID)
	if proposalID == "" {
		return s.uploadUnlinked(ctx, data)
	}

	p, err := s.cfg.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "proposal not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load proposal", err)
	}
	if p.RecruiterID != in.Viewer.UserID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}

	attemptID := s.cfg.NewID()
	lockKey := attemptLockKey(proposalID)
	ok, err := s.cfg.Locker.TryLock(ctx, lockKey, attemptID, s.cfg.AttemptLease)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to start cv attempt", err)
	}
	if !ok {
		return nil, utils.E(utils.CodeConflict, op, "a CV for this proposal is still being processed", nil)
	}
	// from here on the lock belongs to the attempt; released on every early return
	handedOff := false
	defer func() {
		if !handedOff {
			s.unlock(ctx, lockKey, attemptID)
		}
	}()

	objectName := OriginalObjectName(proposalID, attemptID)
	url, err := s.cfg.Store.Upload(ctx, objectName, pdfMime, bytes.NewReader(data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload cv", err)
	}

	if err := s.cfg.Proposals.StartCVAttempt(ctx, proposalID, attemptID, url); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "proposal not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to record cv upload", err)
	}
	s.publish(ctx, proposalID, attemptID, models.StatusUploaded, nil, "")

	res := &UploadResult{
		OriginalURL: url,
		ObjectName:  objectName,
		AttemptID:   attemptID,
		Status:      models.StatusUploaded,
	}

	job := AnonymizeJob{ProposalID: proposalID, AttemptID: attemptID, ObjectName: objectName, Content: data}
	if err := s.cfg.Dispatcher.Dispatch(ctx, job); err != nil {
		s.cfg.Logger.WithError(err).WithFields(logrus.Fields{
			"proposal_id": proposalID,
			"attempt_id":  attemptID,
		}).Error("failed to dispatch anonymization")
		s.markError(ctx, job, "anonymization could not be started")
		res.Status = models.StatusError
		res.Message = "CV uploaded but anonymization could not be started, please upload again"
		return res, nil
	}
	handedOff = true
	return res, nil
}

func (s *cvPipelineService) uploadUnlinked(ctx context.Context, data []byte) (*UploadResult, error) {
	const op = "CVPipelineService.Upload"

	objectName := unlinkedObjectName(s.cfg.Now().UTC())
	url, err := s.cfg.Store.Upload(ctx, objectName, pdfMime, bytes.NewReader(data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload cv", err)
	}
	return &UploadResult{OriginalURL: url, ObjectName: objectName, Status: models.StatusUploaded}, nil
}

func (s *cvPipelineService) Anonymize(ctx context.Context, job AnonymizeJob) error {
	const op = "CVPipelineService.Anonymize"

	if job.ProposalID == "" || job.AttemptID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "proposal_id and attempt_id are required", nil)
	}
	defer s.unlock(ctx, attemptLockKey(job.ProposalID), job.AttemptID)

	log := s.cfg.Logger.WithFields(logrus.Fields{
		"proposal_id": job.ProposalID,
		"attempt_id":  job.AttemptID,
	})

	if err := s.cfg.Proposals.TransitionCV(ctx, job.ProposalID, job.AttemptID, models.StatusAnonymizing, nil); err != nil {
		if errors.Is(err, utils.ErrStaleAttempt) {
			if job.Reclaimed {
				// still current and stuck in anonymizing: the previous run died
				s.markError(ctx, job, "anonymization was interrupted, please upload the CV again")
				log.Warn("interrupted attempt closed with error")
				return utils.E(utils.CodeConflict, op, "attempt interrupted", err)
			}
			log.Warn("attempt superseded before anonymization")
			return utils.E(utils.CodeConflict, op, "attempt superseded", err)
		}
		log.WithError(err).Error("failed to mark anonymizing")
		return s.fail(ctx, job, "failed to start anonymization", err)
	}
	s.publish(ctx, job.ProposalID, job.AttemptID, models.StatusAnonymizing, nil, "")

	content := job.Content
	if content == nil {
		b, err := s.download(ctx, job.ObjectName)
		if err != nil {
			log.WithError(err).Error("failed to download original cv")
			return s.fail(ctx, job, "could not read the uploaded CV", err)
		}
		content = b
	}

	text, err := s.cfg.Extractor.ExtractText(ctx, content)
	if err != nil {
		log.WithError(err).Warn("text extraction failed")
		return s.fail(ctx, job, "could not read text from the CV", err)
	}

	redacted, err := s.cfg.Redactor.Redact(ctx, job.ProposalID, text)
	if err != nil {
		log.WithError(err).Error("redaction failed")
		return s.fail(ctx, job, "anonymization service failed", err)
	}

	url, err := s.publishRedacted(ctx, job, redacted)
	if err != nil {
		if errors.Is(err, utils.ErrStaleAttempt) {
			log.Warn("attempt superseded before completion")
			return utils.E(utils.CodeConflict, op, "attempt superseded", err)
		}
		log.WithError(err).Error("publishing anonymized cv failed")
		return s.fail(ctx, job, "could not publish the anonymized CV", err)
	}

	s.publish(ctx, job.ProposalID, job.AttemptID, models.StatusCompleted, &url, "")
	s.notifyReady(ctx, job.ProposalID)
	log.WithField("anonymized_url", url).Info("cv anonymized")
	return nil
}

// publishRedacted turns the redacted text into a pdf, stores it and completes the attempt.
func (s *cvPipelineService) publishRedacted(ctx context.Context, job AnonymizeJob, redacted string) (string, error) {
	doc, err := s.cfg.Renderer.Render(ctx, "Anonymized CV", redacted)
	if err != nil {
		return "", err
	}
	url, err := s.cfg.Store.Upload(ctx, AnonymizedObjectName(job.ProposalID, job.AttemptID), pdfMime, bytes.NewReader(doc))
	if err != nil {
		return "", err
	}
	if err := s.cfg.Proposals.TransitionCV(ctx, job.ProposalID, job.AttemptID, models.StatusCompleted, &url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *cvPipelineService) download(ctx context.Context, objectName string) ([]byte, error) {
	rc, err := s.cfg.Store.Download(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, MaxCVBytes+1))
}

// fail records the error status and returns the user-facing error.
func (s *cvPipelineService) fail(ctx context.Context, job AnonymizeJob, msg string, cause error) error {
	s.markError(ctx, job, msg)
	return utils.E(utils.CodeUnavailable, "CVPipelineService.Anonymize", msg, cause)
}

// markError survives cancellation of ctx.
func (s *cvPipelineService) markError(ctx context.Context, job AnonymizeJob, msg string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StatusWriteTimeout)
	defer cancel()

	if err := s.cfg.Proposals.TransitionCV(wctx, job.ProposalID, job.AttemptID, models.StatusError, nil); err != nil {
		if !errors.Is(err, utils.ErrStaleAttempt) {
			s.cfg.Logger.WithError(err).WithField("proposal_id", job.ProposalID).Error("failed to record cv error status")
		}
		return
	}
	s.publish(wctx, job.ProposalID, job.AttemptID, models.StatusError, nil, msg)
}

func (s *cvPipelineService) unlock(ctx context.Context, key, owner string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StatusWriteTimeout)
	defer cancel()
	if err := s.cfg.Locker.Unlock(wctx, key, owner); err != nil {
		s.cfg.Logger.WithError(err).WithField("lock", key).Warn("failed to release cv attempt lock")
	}
}

func (s *cvPipelineService) publish(ctx context.Context, proposalID, attemptID string, st models.ProcessingStatus, url *string, msg string) {
	if s.cfg.Publisher == nil {
		return
	}
	ev := models.CVStatusEvent{
		Type:          "cv_status",
		ProposalID:    proposalID,
		AttemptID:     attemptID,
		Status:        st,
		AnonymizedURL: url,
		Message:       msg,
		Timestamp:     s.cfg.Now().UTC().Unix(),
	}
	if err := s.cfg.Publisher.PublishCVStatus(ctx, ev); err != nil {
		s.cfg.Logger.WithError(err).WithField("proposal_id", proposalID).Warn("failed to publish cv status")
	}
}

func (s *cvPipelineService) notifyReady(ctx context.Context, proposalID string) {
	if s.cfg.Notifier == nil {
		return
	}
	p, err := s.cfg.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		return
	}
	_ = s.cfg.Notifier.Notify(ctx, &models.Notification{
		RecipientID: p.CompanyID,
		Type:        models.NotifyCVReady,
		ProposalID:  proposalID,
		ActorID:     p.RecruiterID,
		Message:     fmt.Sprintf("The anonymized CV for %q is ready", p.JobTitle),
	})
}
