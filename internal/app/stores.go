package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/jobingest/internal/config"
	"github.com/JakeFAU/jobingest/internal/export"
	"github.com/JakeFAU/jobingest/internal/feed"
	"github.com/JakeFAU/jobingest/internal/pipeline"
	"github.com/JakeFAU/jobingest/internal/store/memory"
	"github.com/JakeFAU/jobingest/internal/store/mongo"
	"github.com/JakeFAU/jobingest/internal/store/postgres"
	"github.com/JakeFAU/jobingest/internal/store/redis"
)

// RelationalConn is an open relational sink.
type RelationalConn interface {
	pipeline.RelationalStore
	export.RowSource
	Close()
}

// DocumentConn is an open document sink.
type DocumentConn interface {
	pipeline.DocumentStore
	export.DocumentSource
	Close(ctx context.Context) error
}

// KVConn is an open dedup store.
type KVConn interface {
	pipeline.KVStore
	Close() error
}

// OpenRelational opens the configured relational sink.
func OpenRelational(ctx context.Context, cfg config.Config) (RelationalConn, error) {
	switch cfg.Stores.Relational {
	case config.ProviderMemory:
		return memory.NewRelational(cfg.Postgres.Table), nil
	case config.ProviderPostgres:
		s, err := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			OpTimeout:       cfg.Postgres.OpTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", pipeline.ErrConnector, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown relational provider %q", pipeline.ErrConnector, cfg.Stores.Relational)
	}
}

// OpenDocument opens the configured document sink.
func OpenDocument(ctx context.Context, cfg config.Config) (DocumentConn, error) {
	switch cfg.Stores.Document {
	case config.ProviderMemory:
		return memory.NewDocument(), nil
	case config.ProviderMongo:
		s, err := mongo.Open(ctx, mongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			OpTimeout:  cfg.Mongo.OpTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", pipeline.ErrConnector, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown document provider %q", pipeline.ErrConnector, cfg.Stores.Document)
	}
}

// OpenKV opens the configured dedup store.
func OpenKV(ctx context.Context, cfg config.Config) (KVConn, error) {
	switch cfg.Stores.KV {
	case config.ProviderMemory:
		return memory.NewKV(), nil
	case config.ProviderRedis:
		s, err := redis.Open(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			OpTimeout: cfg.Redis.OpTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", pipeline.ErrConnector, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown kv provider %q", pipeline.ErrConnector, cfg.Stores.KV)
	}
}

// lazyGCS creates the storage client on the first gs:// location.
type lazyGCS struct {
	once   sync.Once
	client *storage.Client
	err    error
}

var _ feed.ObjectOpener = (*lazyGCS)(nil)

func (l *lazyGCS) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	l.once.Do(func() {
		l.client, l.err = storage.NewClient(ctx)
	})
	if l.err != nil {
		return nil, fmt.Errorf("create gcs client: %w", l.err)
	}
	return feed.GCSOpener{Client: l.client}.Open(ctx, bucket, object)
}

func (l *lazyGCS) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
