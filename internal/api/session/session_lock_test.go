package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// overlapDetector counts how many writers are inside the inner store at once.
type overlapDetector struct {
	Repository
	inFlight  atomic.Int32
	overlapat atomic.Bool
}

func (d *overlapDetector) Update(ctx context.Context, state *types.SessionState) error {
	if d.inFlight.Add(1) > 1 {
		d.overlapat.Store(true)
	}
	time.Sleep(time.Millisecond)
	d.inFlight.Add(-1)
	return d.Repository.Update(ctx, state)
}

func TestLockedStore_SerializesWritesPerSession(t *testing.T) {
	ctx := context.Background()
	inner := &overlapDetector{Repository: NewInMemorySessionRepository(time.Hour, 0)}
	store := NewLockedStore(inner)

	state := testSessionState()
	require.NoError(t, store.Create(ctx, state))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clone := *state
			assert.NoError(t, store.Update(ctx, &clone))
		}()
	}
	wg.Wait()

	assert.False(t, inner.overlapat.Load(), "concurrent updates to one session must serialize")
}

func TestLockedStore_IndependentSessionsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	store := NewLockedStore(NewInMemorySessionRepository(time.Hour, 0))

	a := testSessionState()
	b := testSessionState()
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	var wg sync.WaitGroup
	for _, state := range []*types.SessionState{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 8; i++ {
				clone := *state
				assert.NoError(t, store.Update(ctx, &clone))
			}
		}()
	}
	wg.Wait()

	loaded, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, loaded.ID)
}

func TestLockedStore_GetPassesThrough(t *testing.T) {
	ctx := context.Background()
	store := NewLockedStore(NewInMemorySessionRepository(time.Hour, 0))

	_, err := store.Get(ctx, uuid.New())
	require.Error(t, err)
}
