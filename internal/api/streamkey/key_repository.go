package streamkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/types"
)

var _ StreamKeyRepo = (*PostgresStreamKeyRepo)(nil)

// KeyOwner identifies the identity an ingest credential belongs to.
type KeyOwner struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// StreamKeyRepo persists the ingest capability credential.
type StreamKeyRepo interface {
	// RotateStreamKey swaps the owner's key for newKey in one transaction
	// and returns the replaced key. The row lock serializes concurrent
	// rotations for the same owner; there is no window where both keys
	// validate.
	RotateStreamKey(ctx context.Context, userID, newKey uuid.UUID) (uuid.UUID, error)

	// GetOwnerByStreamKey maps a key to its enabled owner.
	GetOwnerByStreamKey(ctx context.Context, key uuid.UUID) (*KeyOwner, error)
}

type PostgresStreamKeyRepo struct {
	logger *slog.Logger
	pgpool api.PgxPool
}

func NewPostgresStreamKeyRepo(pgpool api.PgxPool, logger *slog.Logger) *PostgresStreamKeyRepo {
	return &PostgresStreamKeyRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresStreamKeyRepo) RotateStreamKey(ctx context.Context, userID, newKey uuid.UUID) (uuid.UUID, error) {
	ctx, span := otel.Tracer("StreamKeyRepo").Start(ctx, "RotateStreamKey")
	defer span.End()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldKey uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT stream_key FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&oldKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user: %w", types.ErrNotFound)
		}
		span.SetStatus(codes.Error, "lock failed")
		return uuid.Nil, fmt.Errorf("failed to lock user row: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET stream_key = $1, updated_at = now() WHERE id = $2`, newKey, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, fmt.Errorf("generated key already in use: %w", types.ErrConflict)
		}
		span.SetStatus(codes.Error, "update failed")
		return uuid.Nil, fmt.Errorf("failed to update stream key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit rotation: %w", err)
	}
	return oldKey, nil
}

func (r *PostgresStreamKeyRepo) GetOwnerByStreamKey(ctx context.Context, key uuid.UUID) (*KeyOwner, error) {
	var owner KeyOwner
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, username FROM users WHERE stream_key = $1 AND enabled`, key).
		Scan(&owner.UserID, &owner.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stream key: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve stream key: %w", err)
	}
	return &owner, nil
}
