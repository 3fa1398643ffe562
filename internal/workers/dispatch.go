package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/recruitlink/internal/services"
)

// StreamDispatcher queues jobs on the stream read by AnonymizeWorkerPool.
// The original pdf is not copied into the stream; workers download it.
type StreamDispatcher struct {
	Redis  redis.Cmdable
	Stream string
	// MaxLen trims the stream approximately; 0 keeps everything.
	MaxLen int64
}

func (d *StreamDispatcher) Dispatch(ctx context.Context, job services.AnonymizeJob) error {
	stream := d.Stream
	if stream == "" {
		stream = DefaultStream
	}
	return d.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: d.MaxLen,
		Approx: d.MaxLen > 0,
		Values: map[string]any{
			"proposal_id": job.ProposalID,
			"attempt_id":  job.AttemptID,
			"object_name": job.ObjectName,
		},
	}).Err()
}

var ErrDispatcherClosed = errors.New("dispatcher closed")

// InlineDispatcher runs each job on its own goroutine in this process. Jobs
// are detached from the request context and bounded by Timeout; they are
// cancelled only by Shutdown.
type InlineDispatcher struct {
	Timeout time.Duration
	Logger  *logrus.Logger

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pipeline services.CVPipelineService
	closed   bool
	wg       sync.WaitGroup
}

func NewInlineDispatcher(base context.Context, timeout time.Duration, log *logrus.Logger) *InlineDispatcher {
	if base == nil {
		base = context.Background()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if log == nil {
		log = logrus.New()
	}
	ctx, cancel := context.WithCancel(base)
	return &InlineDispatcher{Timeout: timeout, Logger: log, base: ctx, cancel: cancel}
}

// Bind sets the pipeline that runs the jobs. The pipeline is built with the
// dispatcher, so it is bound afterwards.
func (d *InlineDispatcher) Bind(p services.CVPipelineService) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipeline = p
}

func (d *InlineDispatcher) Dispatch(_ context.Context, job services.AnonymizeJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if d.pipeline == nil {
		return errors.New("inline dispatcher: pipeline not bound")
	}

	p := d.pipeline
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(d.base, d.Timeout)
		defer cancel()
		if err := p.Anonymize(ctx, job); err != nil {
			d.Logger.WithError(err).WithField("proposal_id", job.ProposalID).Warn("inline anonymization failed")
		}
	}()
	return nil
}

// Shutdown rejects new jobs and waits for the running ones until ctx is done.
// Jobs still running then are cancelled; Shutdown returns once they have
// recorded their outcome.
func (d *InlineDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return drain(ctx, &d.wg, d.cancel)
}

// Close is Shutdown without a deadline.
func (d *InlineDispatcher) Close() { _ = d.Shutdown(context.Background()) }

// Wait blocks until every dispatched job has finished.
func (d *InlineDispatcher) Wait() { d.wg.Wait() }

// drain waits for wg. When ctx ends first it calls cancel and keeps waiting,
// so callers may release shared clients afterwards.
func drain(ctx context.Context, wg *sync.WaitGroup, cancel context.CancelFunc) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}
