// Package config loads and validates ingest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store providers.
const (
	ProviderMemory   = "memory"
	ProviderPostgres = "postgres"
	ProviderMongo    = "mongo"
	ProviderRedis    = "redis"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Stores   StoresConfig   `mapstructure:"stores"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StoresConfig selects the backend for each sink.
type StoresConfig struct {
	Relational string `mapstructure:"relational"`
	Document   string `mapstructure:"document"`
	KV         string `mapstructure:"kv"`
}

// PostgresConfig controls the relational sink.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	OpTimeout       time.Duration `mapstructure:"op_timeout"`
}

// MongoConfig controls the document sink.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	OpTimeout  time.Duration `mapstructure:"op_timeout"`
}

// RedisConfig controls the dedup store.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// PipelineConfig governs record processing.
type PipelineConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueDepth int `mapstructure:"queue_depth"`
	// ReleaseDedupOnFailure clears the dedup mark for records dropped before
	// any row was committed.
	ReleaseDedupOnFailure bool `mapstructure:"release_dedup_on_failure"`
}

// FeedConfig controls where records come from.
type FeedConfig struct {
	Locations []string      `mapstructure:"locations"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MetricsConfig enables the metrics and health listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// PubSubConfig holds metadata for persisted-record notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("stores.relational", ProviderMemory)
	v.SetDefault("stores.document", ProviderMemory)
	v.SetDefault("stores.kv", ProviderMemory)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "raw_table")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.min_conns", 0)
	v.SetDefault("postgres.max_conn_lifetime", "30m")
	v.SetDefault("postgres.op_timeout", "10s")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "jobs_db")
	v.SetDefault("mongo.collection", "raw_collection")
	v.SetDefault("mongo.op_timeout", "10s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.op_timeout", "5s")
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_depth", 64)
	v.SetDefault("pipeline.release_dedup_on_failure", false)
	v.SetDefault("feed.locations", []string{})
	v.SetDefault("feed.user_agent", "jobingest/0.1")
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Stores.Relational {
	case ProviderMemory:
	case ProviderPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when stores.relational is %q", ProviderPostgres)
		}
	default:
		return fmt.Errorf("stores.relational must be %q or %q", ProviderPostgres, ProviderMemory)
	}
	switch c.Stores.Document {
	case ProviderMemory:
	case ProviderMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required when stores.document is %q", ProviderMongo)
		}
	default:
		return fmt.Errorf("stores.document must be %q or %q", ProviderMongo, ProviderMemory)
	}
	switch c.Stores.KV {
	case ProviderMemory:
	case ProviderRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when stores.kv is %q", ProviderRedis)
		}
	default:
		return fmt.Errorf("stores.kv must be %q or %q", ProviderRedis, ProviderMemory)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if c.Pipeline.QueueDepth <= 0 {
		return fmt.Errorf("pipeline.queue_depth must be > 0")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be > 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}
