// Package runner fans feed records out to a pool of pipeline workers.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/metrics"
	"github.com/JakeFAU/jobingest/internal/pipeline"
	"github.com/JakeFAU/jobingest/internal/record"
)

// Notification events.
const (
	EventRecordPersisted = "record.persisted"
	EventRunFinished     = "run.finished"
)

// Processor handles one record end to end.
type Processor interface {
	Process(ctx context.Context, rec record.Record) (pipeline.PersistResult, error)
}

// Source loads the records stored at a feed location.
type Source interface {
	Records(ctx context.Context, location string) ([]record.Record, error)
}

// Publisher sends notifications.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) (string, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Config controls the worker pool.
type Config struct {
	Workers    int
	QueueDepth int
}

// Notification is published for each record committed to both sinks.
type Notification struct {
	RunID       string    `json:"run_id"`
	ReqID       string    `json:"req_id"`
	Title       string    `json:"title"`
	PersistedAt time.Time `json:"persisted_at"`
}

// Summary tallies one run.
type Summary struct {
	RunID     string         `json:"run_id"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
	Seen      int            `json:"seen"`
	Persisted int            `json:"persisted"`
	Drops     map[string]int `json:"drops"`
	// PartialWrites counts records whose relational row committed but whose
	// document insert failed.
	PartialWrites int `json:"partial_writes"`
	FeedErrors    int `json:"feed_errors"`
}

// Dropped returns the total number of dropped records.
func (s Summary) Dropped() int {
	n := 0
	for _, c := range s.Drops {
		n += c
	}
	return n
}

// Runner drives records through a Processor.
type Runner struct {
	proc      Processor
	publisher Publisher
	clock     Clock
	ids       IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. publisher may be nil.
func New(proc Processor, publisher Publisher, clock Clock, ids IDGenerator, cfg Config, logger *zap.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = cfg.Workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Runner{
		proc:      proc,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run reads every location in order and processes its records. A location
// that cannot be read is logged and skipped. Cancelling ctx stops new records
// from being queued; records already handed to a worker run to completion.
func (r *Runner) Run(ctx context.Context, src Source, locations []string) (Summary, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := r.logger.With(zap.String("run_id", runID))
	t := newTally(runID, r.clock.Now())
	logger.Info("run started", zap.Strings("locations", locations), zap.Int("workers", r.cfg.Workers))

	queue := make(chan record.Record, r.cfg.QueueDepth)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r.work(ctx, logger.With(zap.Int("worker", worker)), runID, queue, t)
		}(i)
	}

	runErr := r.feed(ctx, logger, src, locations, queue, t)
	close(queue)
	wg.Wait()

	summary := t.summary(r.clock.Now())
	logger.Info("run finished",
		zap.Int("seen", summary.Seen),
		zap.Int("persisted", summary.Persisted),
		zap.Int("dropped", summary.Dropped()),
		zap.Int("partial_writes", summary.PartialWrites),
		zap.Int("feed_errors", summary.FeedErrors),
		zap.Any("drops", summary.Drops),
	)
	r.publish(context.WithoutCancel(ctx), logger, EventRunFinished, summary)
	return summary, runErr
}

func (r *Runner) feed(
	ctx context.Context,
	logger *zap.Logger,
	src Source,
	locations []string,
	queue chan<- record.Record,
	t *tally,
) error {
	for _, location := range locations {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run canceled: %w", err)
		}
		recs, err := src.Records(ctx, location)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("run canceled: %w", ctx.Err())
			}
			logger.Error("feed read failed", zap.String("location", location), zap.Error(err))
			t.feedError()
			continue
		}
		logger.Info("feed loaded", zap.String("location", location), zap.Int("records", len(recs)))
		for _, rec := range recs {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run canceled: %w", err)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("run canceled: %w", ctx.Err())
			case queue <- rec:
			}
		}
	}
	return nil
}

func (r *Runner) work(ctx context.Context, logger *zap.Logger, runID string, queue <-chan record.Record, t *tally) {
	// A record is never abandoned half way; only queueing honours cancellation.
	recCtx := context.WithoutCancel(ctx)
	for rec := range queue {
		metrics.IncActiveWorkers()
		start := r.clock.Now()
		res, err := r.proc.Process(recCtx, rec)
		outcome := "persisted"
		if err != nil {
			outcome = pipeline.KindName(err)
		}
		metrics.ObserveRecord(outcome, r.clock.Now().Sub(start))
		metrics.ObserveSinkWrite("relational", string(res.Relational))
		metrics.ObserveSinkWrite("document", string(res.Document))
		metrics.DecActiveWorkers()

		t.add(outcome, res)
		if err == nil {
			r.publish(recCtx, logger, EventRecordPersisted, Notification{
				RunID:       runID,
				ReqID:       pipeline.Identity(rec),
				Title:       rec.Text(jobs.FieldTitle),
				PersistedAt: r.clock.Now(),
			})
		}
	}
}

func (r *Runner) publish(ctx context.Context, logger *zap.Logger, event string, payload any) {
	if r.publisher == nil {
		return
	}
	if _, err := r.publisher.Publish(ctx, event, payload); err != nil {
		logger.Warn("publish notification failed", zap.String("event", event), zap.Error(err))
	}
}

type tally struct {
	mu sync.Mutex
	s  Summary
}

func newTally(runID string, started time.Time) *tally {
	return &tally{s: Summary{RunID: runID, Started: started, Drops: map[string]int{}}}
}

func (t *tally) add(outcome string, res pipeline.PersistResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Seen++
	if outcome == "persisted" {
		t.s.Persisted++
		return
	}
	t.s.Drops[outcome]++
	if res.Relational == pipeline.SinkCommitted && res.Document == pipeline.SinkFailed {
		t.s.PartialWrites++
	}
}

func (t *tally) feedError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.FeedErrors++
}

func (t *tally) summary(finished time.Time) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.s
	out.Finished = finished
	out.Drops = make(map[string]int, len(t.s.Drops))
	for k, v := range t.s.Drops {
		out.Drops[k] = v
	}
	return out
}
