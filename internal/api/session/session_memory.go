package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Repository = (*InMemorySessionRepository)(nil)

// InMemorySessionRepository keeps sessions in a TTL cache. Used for
// single-node development and as a deterministic stand-in in tests. States
// are copied through JSON on both sides of the boundary, which doubles as a
// check that every state round-trips losslessly.
type InMemorySessionRepository struct {
	store *cache.Cache
}

func NewInMemorySessionRepository(ttl, cleanupInterval time.Duration) *InMemorySessionRepository {
	return &InMemorySessionRepository{
		store: cache.New(ttl, cleanupInterval),
	}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, state *types.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	r.store.Set(state.ID.String(), payload, time.Until(state.ExpiresAt))
	return nil
}

func (r *InMemorySessionRepository) Get(ctx context.Context, id uuid.UUID) (*types.SessionState, error) {
	raw, found := r.store.Get(id.String())
	if !found {
		return nil, fmt.Errorf("session %s: %w", id, types.ErrSessionNotFound)
	}
	var state types.SessionState
	if err := json.Unmarshal(raw.([]byte), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

func (r *InMemorySessionRepository) Update(ctx context.Context, state *types.SessionState) error {
	if _, found := r.store.Get(state.ID.String()); !found {
		return fmt.Errorf("session %s: %w", state.ID, types.ErrSessionNotFound)
	}
	state.UpdatedAt = time.Now()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	r.store.Set(state.ID.String(), payload, time.Until(state.ExpiresAt))
	return nil
}

func (r *InMemorySessionRepository) Expire(ctx context.Context, id uuid.UUID) error {
	if _, found := r.store.Get(id.String()); !found {
		return fmt.Errorf("session %s: %w", id, types.ErrSessionNotFound)
	}
	r.store.Delete(id.String())
	return nil
}

func (r *InMemorySessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	before := r.store.ItemCount()
	r.store.DeleteExpired()
	return int64(before - r.store.ItemCount()), nil
}
