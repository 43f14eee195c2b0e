// Package main hosts the jobingest command.
//
// A run reads one or more job feeds, validates and deduplicates each posting,
// normalizes its fields and writes it to a relational table and a document
// collection:
//   - Feeds: local paths, file:// and http(s):// URLs, and gs:// objects. A feed
//     that cannot be read is logged and skipped.
//   - Stores: Postgres, MongoDB and Redis when configured, in-process memory
//     stores otherwise. Each store is opened once per invocation and closed on exit.
//   - Workers: records are fanned out to pipeline.workers goroutines. SIGINT and
//     SIGTERM stop new records from being queued; records already in flight finish.
//   - Observability: zap logs carry req_id and the drop kind; when metrics.addr
//     is set, /healthz, /readyz and /metrics are served for the life of the run.
//     Persisted records are announced on Pub/Sub when pubsub.topic_name is set.
//
// Configuration comes from an optional YAML file (--config), a .env file and
// JOBINGEST_* environment variables, e.g. JOBINGEST_STORES_RELATIONAL=postgres
// and JOBINGEST_POSTGRES_DSN.
package main
