package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobingest/internal/store/memory"
)

func TestGateAdmitsConcurrentIdentityOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate := NewGate(memory.NewKV())

	const workers = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		admitted   int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.Admit(ctx, "A1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrDuplicate):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, workers-1, duplicates)
}

func TestGateSeenAndRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := memory.NewKV()
	gate := NewGate(kv)

	seen, err := gate.Seen(ctx, "A1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, gate.Admit(ctx, "A1"))
	exists, err := kv.Exists(ctx, "job:A1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, gate.Release(ctx, "A1"))
	require.NoError(t, gate.Admit(ctx, "A1"), "released identity is admitted again")
}

func TestGateUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate := NewGate(brokenKV{})

	err := gate.Admit(ctx, "A1")
	require.ErrorIs(t, err, ErrGateUnavailable)
	require.ErrorIs(t, err, errKVDown)
	require.NotErrorIs(t, err, ErrDuplicate)

	_, err = gate.Seen(ctx, "A1")
	require.ErrorIs(t, err, ErrGateUnavailable)
	require.ErrorIs(t, gate.Release(ctx, "A1"), ErrGateUnavailable)
}
