// Package app owns the long-lived services of an ingest run: the three stores,
// the notification publisher and the pipeline built on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/clock/system"
	"github.com/JakeFAU/jobingest/internal/config"
	"github.com/JakeFAU/jobingest/internal/export"
	"github.com/JakeFAU/jobingest/internal/feed"
	"github.com/JakeFAU/jobingest/internal/id/uuid"
	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/pipeline"
	pubmemory "github.com/JakeFAU/jobingest/internal/publisher/memory"
	pubsubpub "github.com/JakeFAU/jobingest/internal/publisher/pubsub"
	"github.com/JakeFAU/jobingest/internal/runner"
)

// Stores groups the opened sinks handed to NewWithStores.
type Stores struct {
	Relational RelationalConn
	Document   DocumentConn
	KV         KVConn
}

// App holds the services shared by one invocation.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	stores Stores

	gcs       *lazyGCS
	psClient  *pubsub.Client
	publisher *pubsubpub.Publisher

	reader *feed.Reader
	runner *runner.Runner
	ready  atomic.Bool
}

// New opens every configured store, ensures the relational schema and wires
// the pipeline. Any failure closes what was already opened and is reported as
// pipeline.ErrConnector.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rel, err := OpenRelational(ctx, cfg)
	if err != nil {
		return nil, err
	}
	doc, err := OpenDocument(ctx, cfg)
	if err != nil {
		rel.Close()
		return nil, err
	}
	kv, err := OpenKV(ctx, cfg)
	if err != nil {
		rel.Close()
		return nil, errors.Join(err, doc.Close(ctx))
	}
	stores := Stores{Relational: rel, Document: doc, KV: kv}

	var (
		client *pubsub.Client
		topic  *pubsubpub.Publisher
		pub    runner.Publisher = pubmemory.New(logger.Named("notify"))
	)
	if cfg.PubSub.TopicName != "" {
		client, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			_ = closeStores(ctx, stores)
			return nil, fmt.Errorf("%w: create pubsub client: %w", pipeline.ErrConnector, err)
		}
		topic = pubsubpub.New(client.Topic(cfg.PubSub.TopicName))
		pub = topic
		logger.Info("publishing notifications", zap.String("topic", cfg.PubSub.TopicName))
	}

	a, err := NewWithStores(ctx, cfg, stores, pub, logger)
	if err != nil {
		if topic != nil {
			topic.Stop()
			_ = client.Close()
		}
		_ = closeStores(ctx, stores)
		return nil, err
	}
	a.psClient = client
	a.publisher = topic
	return a, nil
}

// NewWithStores wires an App around already opened stores. pub may be nil.
func NewWithStores(ctx context.Context, cfg config.Config, stores Stores, pub runner.Publisher, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stores.Relational == nil || stores.Document == nil || stores.KV == nil {
		return nil, fmt.Errorf("%w: all three stores are required", pipeline.ErrConnector)
	}
	if err := stores.Relational.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("%w: ensure schema: %w", pipeline.ErrConnector, err)
	}

	writer, err := pipeline.NewDualSinkWriter(stores.Relational, stores.Document, cfg.Postgres.Table)
	if err != nil {
		return nil, fmt.Errorf("build writer: %w", err)
	}
	proc := pipeline.New(pipeline.NewGate(stores.KV), writer, pipeline.Options{
		Required:         jobs.RequiredFields(),
		Types:            pipeline.JobFieldTypes(),
		ReleaseOnFailure: cfg.Pipeline.ReleaseDedupOnFailure,
		Logger:           logger,
	})

	gcs := &lazyGCS{}
	a := &App{
		cfg:    cfg,
		logger: logger,
		stores: stores,
		gcs:    gcs,
		reader: feed.NewReader(feed.Config{UserAgent: cfg.Feed.UserAgent, Timeout: cfg.Feed.Timeout}, gcs),
		runner: runner.New(proc, pub, system.New(), uuid.New(), runner.Config{
			Workers:    cfg.Pipeline.Workers,
			QueueDepth: cfg.Pipeline.QueueDepth,
		}, logger),
	}
	a.ready.Store(true)
	return a, nil
}

// Ready reports whether the stores are open.
func (a *App) Ready() bool {
	return a.ready.Load()
}

// Run ingests every location. With no locations it falls back to feed.locations.
func (a *App) Run(ctx context.Context, locations []string) (runner.Summary, error) {
	if len(locations) == 0 {
		locations = a.cfg.Feed.Locations
	}
	if len(locations) == 0 {
		return runner.Summary{}, errors.New("no feed locations given")
	}
	return a.runner.Run(ctx, a.reader, locations)
}

// Export dumps both sinks as CSV into outDir.
func (a *App) Export(ctx context.Context, outDir string) (export.Result, error) {
	return export.Run(ctx, a.stores.Relational, a.stores.Document, outDir)
}

// Close stops the publisher and closes every store exactly once.
func (a *App) Close(ctx context.Context) error {
	if !a.ready.CompareAndSwap(true, false) {
		return nil
	}
	var errs []error
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.psClient != nil {
		if err := a.psClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub: %w", err))
		}
	}
	if err := a.gcs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close gcs: %w", err))
	}
	if err := closeStores(ctx, a.stores); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", pipeline.ErrConnector, errors.Join(errs...))
	}
	return nil
}

func closeStores(ctx context.Context, s Stores) error {
	var errs []error
	if s.KV != nil {
		if err := s.KV.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kv: %w", err))
		}
	}
	if s.Document != nil {
		if err := s.Document.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close document store: %w", err))
		}
	}
	if s.Relational != nil {
		s.Relational.Close()
	}
	return errors.Join(errs...)
}

// EnsureSchema opens only the relational store and creates the jobs table.
func EnsureSchema(ctx context.Context, cfg config.Config) error {
	rel, err := OpenRelational(ctx, cfg)
	if err != nil {
		return err
	}
	defer rel.Close()
	if err := rel.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("%w: ensure schema: %w", pipeline.ErrConnector, err)
	}
	return nil
}
