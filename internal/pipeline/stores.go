package pipeline

import "context"

// RelationalStore executes parameterized writes inside its own transaction scope.
type RelationalStore interface {
	// ExecuteWrite runs sql with args, committing on success and rolling back on error.
	ExecuteWrite(ctx context.Context, sql string, args ...any) error
	// EnsureSchema idempotently creates the target table.
	EnsureSchema(ctx context.Context) error
}

// DocumentStore accepts structured documents without validating their shape.
type DocumentStore interface {
	InsertOne(ctx context.Context, doc map[string]any) error
}

// KVStore is the key-value backend behind the dedup gate.
type KVStore interface {
	// SetIfAbsent atomically sets key and reports whether it was newly set.
	SetIfAbsent(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
