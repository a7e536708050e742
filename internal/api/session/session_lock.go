package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Repository = (*LockedStore)(nil)

// LockedStore serializes writes per session id: at most one Create/Update/
// Expire per session may be in flight at a time, while sessions stay fully
// independent of each other. Reads and cleanup pass straight through, and no
// lock is ever held across an external call.
type LockedStore struct {
	inner Repository

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLockedStore(inner Repository) *LockedStore {
	return &LockedStore{
		inner: inner,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *LockedStore) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *LockedStore) Create(ctx context.Context, state *types.SessionState) error {
	l := s.lockFor(state.ID)
	l.Lock()
	defer l.Unlock()
	return s.inner.Create(ctx, state)
}

func (s *LockedStore) Get(ctx context.Context, id uuid.UUID) (*types.SessionState, error) {
	return s.inner.Get(ctx, id)
}

func (s *LockedStore) Update(ctx context.Context, state *types.SessionState) error {
	l := s.lockFor(state.ID)
	l.Lock()
	defer l.Unlock()
	return s.inner.Update(ctx, state)
}

func (s *LockedStore) Expire(ctx context.Context, id uuid.UUID) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	return s.inner.Expire(ctx, id)
}

func (s *LockedStore) CleanupExpired(ctx context.Context) (int64, error) {
	return s.inner.CleanupExpired(ctx)
}
