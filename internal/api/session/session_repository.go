package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Repository persists SessionState across the pause boundary.
type Repository interface {
	Create(ctx context.Context, state *types.SessionState) error
	Get(ctx context.Context, id uuid.UUID) (*types.SessionState, error)
	Update(ctx context.Context, state *types.SessionState) error
	Expire(ctx context.Context, id uuid.UUID) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// PGXPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*PostgresSessionRepository)(nil)

// PostgresSessionRepository stores the full session state as a JSONB blob so
// it round-trips losslessly across process restarts.
type PostgresSessionRepository struct {
	logger *slog.Logger
	db     PGXPool
}

func NewPostgresSessionRepository(db PGXPool, logger *slog.Logger) *PostgresSessionRepository {
	return &PostgresSessionRepository{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, state *types.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	query := `
        INSERT INTO planning_sessions (id, stage, state, created_at, updated_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err = r.db.Exec(ctx, query,
		state.ID, string(state.Stage), payload, state.CreatedAt, state.UpdatedAt, state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) Get(ctx context.Context, id uuid.UUID) (*types.SessionState, error) {
	query := `
        SELECT state
        FROM planning_sessions
        WHERE id = $1 AND expires_at > now()
    `
	var payload []byte
	if err := r.db.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, types.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var state types.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

func (r *PostgresSessionRepository) Update(ctx context.Context, state *types.SessionState) error {
	state.UpdatedAt = time.Now()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	query := `
        UPDATE planning_sessions
        SET stage = $2, state = $3, updated_at = $4, expires_at = $5
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query,
		state.ID, string(state.Stage), payload, state.UpdatedAt, state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", state.ID, types.ErrSessionNotFound)
	}
	return nil
}

func (r *PostgresSessionRepository) Expire(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE planning_sessions
        SET expires_at = now()
        WHERE id = $1 AND expires_at > now()
    `
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, types.ErrSessionNotFound)
	}
	return nil
}

func (r *PostgresSessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM planning_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
