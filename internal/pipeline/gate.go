package pipeline

import (
	"context"
	"fmt"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// Gate admits each record identity at most once for the lifetime of the
// key-value data.
type Gate struct {
	kv KVStore
}

// NewGate creates a Gate over kv.
func NewGate(kv KVStore) *Gate {
	return &Gate{kv: kv}
}

// Admit marks identity as accepted. It returns ErrDuplicate when the identity
// was already marked and ErrGateUnavailable when the store call fails, in which
// case nothing is marked. Check and mark happen in one atomic store call.
func (g *Gate) Admit(ctx context.Context, identity string) error {
	key := jobs.DedupKey(identity)
	added, err := g.kv.SetIfAbsent(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrGateUnavailable, key, err)
	}
	if !added {
		return ErrDuplicate
	}
	return nil
}

// Seen reports whether identity has been admitted.
func (g *Gate) Seen(ctx context.Context, identity string) (bool, error) {
	key := jobs.DedupKey(identity)
	ok, err := g.kv.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", ErrGateUnavailable, key, err)
	}
	return ok, nil
}

// Release removes the admission marker for identity.
func (g *Gate) Release(ctx context.Context, identity string) error {
	key := jobs.DedupKey(identity)
	if err := g.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrGateUnavailable, key, err)
	}
	return nil
}
