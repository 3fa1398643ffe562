package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yoockh/recruitlink/internal/logger"
	"github.com/yoockh/recruitlink/internal/services"
)

type recordingPipeline struct {
	mu       sync.Mutex
	jobs     []services.AnonymizeJob
	deadline bool
}

func (r *recordingPipeline) Upload(context.Context, services.UploadInput) (*services.UploadResult, error) {
	return nil, errors.New("not used")
}

func (r *recordingPipeline) Anonymize(ctx context.Context, job services.AnonymizeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, r.deadline = ctx.Deadline()
	r.jobs = append(r.jobs, job)
	return nil
}

func TestInlineDispatcherRunsDetachedFromRequest(t *testing.T) {
	t.Parallel()

	p := &recordingPipeline{}
	d := NewInlineDispatcher(context.Background(), time.Minute, logger.Discard())
	d.Bind(p)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Dispatch(reqCtx, services.AnonymizeJob{ProposalID: "p1", AttemptID: "a1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.jobs) != 1 || p.jobs[0].AttemptID != "a1" {
		t.Fatalf("expected job to run, got %+v", p.jobs)
	}
	if !p.deadline {
		t.Fatalf("expected job context to carry the dispatcher timeout")
	}
}

func TestInlineDispatcherRejectsAfterClose(t *testing.T) {
	t.Parallel()

	d := NewInlineDispatcher(context.Background(), time.Second, logger.Discard())
	if err := d.Dispatch(context.Background(), services.AnonymizeJob{}); err == nil {
		t.Fatalf("expected error without a bound pipeline")
	}
	d.Bind(&recordingPipeline{})
	d.Close()
	if err := d.Dispatch(context.Background(), services.AnonymizeJob{ProposalID: "p"}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
}

// blockingPipeline holds each job until release is closed or its context ends.
type blockingPipeline struct {
	started   chan struct{}
	release   chan struct{}
	mu        sync.Mutex
	cancelled bool
}

func (b *blockingPipeline) Upload(context.Context, services.UploadInput) (*services.UploadResult, error) {
	return nil, errors.New("not used")
}

func (b *blockingPipeline) Anonymize(ctx context.Context, job services.AnonymizeJob) error {
	close(b.started)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		b.cancelled = true
		b.mu.Unlock()
		return ctx.Err()
	}
}

func TestInlineDispatcherShutdownLetsJobsFinish(t *testing.T) {
	t.Parallel()

	p := &blockingPipeline{started: make(chan struct{}), release: make(chan struct{})}
	d := NewInlineDispatcher(context.Background(), time.Minute, logger.Discard())
	d.Bind(p)
	if err := d.Dispatch(context.Background(), services.AnonymizeJob{ProposalID: "p1", AttemptID: "a1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-p.started

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(p.release)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("expected clean drain, got %v", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled {
		t.Fatalf("job was cancelled during a graceful drain")
	}
}

func TestInlineDispatcherShutdownDeadlineCancelsJobs(t *testing.T) {
	t.Parallel()

	p := &blockingPipeline{started: make(chan struct{}), release: make(chan struct{})}
	d := NewInlineDispatcher(context.Background(), time.Minute, logger.Discard())
	d.Bind(p)
	if err := d.Dispatch(context.Background(), services.AnonymizeJob{ProposalID: "p1", AttemptID: "a1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-p.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	// Shutdown returned, so the job has already observed the cancellation
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cancelled {
		t.Fatalf("expected the running job to be cancelled")
	}
	if err := d.Dispatch(context.Background(), services.AnonymizeJob{ProposalID: "p2"}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
}

func TestJobFromMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values map[string]any
		ok     bool
	}{
		{name: "complete", values: map[string]any{"proposal_id": "p1", "attempt_id": "a1", "object_name": "cv/p1/original-a1.pdf"}, ok: true},
		{name: "missing attempt", values: map[string]any{"proposal_id": "p1", "object_name": "x"}},
		{name: "wrong type", values: map[string]any{"proposal_id": 1, "attempt_id": "a1", "object_name": "x"}},
	}
	for _, tc := range tests {
		job, ok := JobFromMessage(redis.XMessage{ID: "1-0", Values: tc.values})
		if ok != tc.ok {
			t.Fatalf("%s: expected ok=%v, got %v (%+v)", tc.name, tc.ok, ok, job)
		}
		if ok && job.ObjectName != "cv/p1/original-a1.pdf" {
			t.Fatalf("%s: unexpected job %+v", tc.name, job)
		}
	}
}
