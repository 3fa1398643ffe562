package workers

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/recruitlink/internal/services"
	"github.com/yoockh/recruitlink/internal/utils"
)

const (
	DefaultStream = "cv:anonymize"
	DefaultGroup  = "cv-anonymizers"
)

// AnonymizeWorkerPool consumes anonymization jobs from a Redis stream so any
// replica can finish an attempt started by another one.
type AnonymizeWorkerPool struct {
	Redis      *redis.Client
	Pipeline   services.CVPipelineService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	// JobTimeout bounds one anonymization, redaction call included.
	JobTimeout time.Duration
	// ReclaimIdle is how long an entry may stay pending before another
	// consumer takes it over. Defaults to twice JobTimeout.
	ReclaimIdle time.Duration

	wg        sync.WaitGroup
	jobCtx    context.Context
	jobCancel context.CancelFunc
}

func (p *AnonymizeWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Pipeline == nil {
		return errors.New("AnonymizeWorkerPool missing dependency: Redis/Pipeline must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.JobTimeout <= 0 {
		p.JobTimeout = 2 * time.Minute
	}
	if p.ReclaimIdle <= 0 {
		p.ReclaimIdle = 2 * p.JobTimeout
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	// ctx stops reading; running jobs keep going until Shutdown gives up on them
	p.jobCtx, p.jobCancel = context.WithCancel(context.WithoutCancel(ctx))

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runConsumer(ctx, consumer)
		}()
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runReclaimer(ctx, p.ConsumerPrefix+"-reclaim")
	}()
	return nil
}

// Shutdown waits for the consumers to stop after the Start context is done.
// Jobs still running when ctx ends are cancelled and leave their entries
// pending for another replica.
func (p *AnonymizeWorkerPool) Shutdown(ctx context.Context) error {
	if p.jobCancel == nil {
		return nil
	}
	return drain(ctx, &p.wg, p.jobCancel)
}

func (p *AnonymizeWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    4,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				if ctx.Err() != nil {
					// left pending, reclaimed later
					break
				}
				p.process(msg, false)
			}
		}
	}
}

// runReclaimer takes over entries whose consumer died mid-job.
func (p *AnonymizeWorkerPool) runReclaimer(ctx context.Context, consumer string) {
	t := time.NewTicker(p.ReclaimIdle / 2)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		start := "0-0"
		for ctx.Err() == nil {
			msgs, next, err := p.Redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   p.Stream,
				Group:    p.Group,
				Consumer: consumer,
				MinIdle:  p.ReclaimIdle,
				Start:    start,
				Count:    16,
			}).Result()
			if err != nil {
				if ctx.Err() == nil {
					p.Logger.WithError(err).WithField("consumer", consumer).Warn("xautoclaim failed")
				}
				break
			}
			for _, msg := range msgs {
				if ctx.Err() != nil {
					break
				}
				p.process(msg, true)
			}
			if next == "0-0" || next == "" {
				break
			}
			start = next
		}
	}
}

func (p *AnonymizeWorkerPool) process(msg redis.XMessage, reclaimed bool) {
	p.handleMsg(p.jobCtx, msg, reclaimed)
	if p.jobCtx.Err() != nil {
		// cancelled by Shutdown, left pending
		return
	}
	_ = p.Redis.XAck(p.jobCtx, p.Stream, p.Group, msg.ID).Err()
}

// JobFromMessage decodes a stream entry written by StreamDispatcher.
func JobFromMessage(msg redis.XMessage) (services.AnonymizeJob, bool) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	job := services.AnonymizeJob{
		ProposalID: getStr("proposal_id"),
		AttemptID:  getStr("attempt_id"),
		ObjectName: getStr("object_name"),
	}
	return job, job.ProposalID != "" && job.AttemptID != "" && job.ObjectName != ""
}

func (p *AnonymizeWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage, reclaimed bool) {
	job, ok := JobFromMessage(msg)
	if !ok {
		p.Logger.WithField("redis_id", msg.ID).Warn("dropping malformed anonymize job")
		return
	}
	job.Reclaimed = reclaimed

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"proposal_id": job.ProposalID,
		"attempt_id":  job.AttemptID,
		"reclaimed":   reclaimed,
	})

	jctx, cancel := context.WithTimeout(ctx, p.JobTimeout)
	defer cancel()

	start := time.Now()
	if err := p.Pipeline.Anonymize(jctx, job); err != nil {
		// the attempt already recorded its own error status
		if utils.IsCode(err, utils.CodeConflict) {
			log.Info("skipping superseded attempt")
			return
		}
		log.WithError(err).Warn("anonymize job failed")
		return
	}
	log.WithField("processing_time_ms", time.Since(start).Milliseconds()).Info("anonymize job done")
}
