package stream

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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/types"
)

var _ StreamRepo = (*PostgresStreamRepo)(nil)

// StreamRepo persists broadcast sessions. The single-live-session
// invariant lives in the schema (partial unique index on the owner while
// live), so the is-there-a-live-session check and the insert are one
// atomic unit: of two concurrent starts, one succeeds and one gets
// types.ErrConflict.
type StreamRepo interface {
	StartStream(ctx context.Context, userID, streamKey uuid.UUID, params types.StartStreamParams) (*types.Stream, error)
	EndStream(ctx context.Context, userID uuid.UUID) (*types.Stream, error)
	UpdateViewersCount(ctx context.Context, streamID uuid.UUID, delta int) (int, error)
	GetStreamByID(ctx context.Context, streamID uuid.UUID) (*types.Stream, error)
	ListLiveStreams(ctx context.Context) ([]types.Stream, error)
	ListStreamsByUser(ctx context.Context, userID uuid.UUID) ([]types.Stream, error)
	SearchStreams(ctx context.Context, query string) ([]types.Stream, error)
	DeleteStream(ctx context.Context, streamID uuid.UUID) error
}

type PostgresStreamRepo struct {
	logger *slog.Logger
	pgpool api.PgxPool
}

func NewPostgresStreamRepo(pgpool api.PgxPool, logger *slog.Logger) *PostgresStreamRepo {
	return &PostgresStreamRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const streamColumns = `id, user_id, title, description, thumbnail_url, stream_key_snapshot,
       is_live, started_at, ended_at, viewers_count, created_at, updated_at`

func scanStream(row pgx.Row) (*types.Stream, error) {
	var s types.Stream
	err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.ThumbnailURL,
		&s.StreamKeySnapshot, &s.IsLive, &s.StartedAt, &s.EndedAt, &s.ViewersCount,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stream: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan stream: %w", err)
	}
	return &s, nil
}

func collectStreams(rows pgx.Rows) ([]types.Stream, error) {
	defer rows.Close()
	var streams []types.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		streams = append(streams, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read streams: %w", err)
	}
	return streams, nil
}

// StartStream creates a live session for the owner. If the owner already
// has a live session the partial unique index rejects the insert and the
// existing session is left untouched.
func (r *PostgresStreamRepo) StartStream(ctx context.Context, userID, streamKey uuid.UUID, params types.StartStreamParams) (*types.Stream, error) {
	ctx, span := otel.Tracer("StreamRepo").Start(ctx, "StartStream")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	row := r.pgpool.QueryRow(ctx,
		`INSERT INTO streams (user_id, title, description, thumbnail_url, stream_key_snapshot, is_live, started_at, viewers_count)
         VALUES ($1, $2, $3, $4, $5, TRUE, now(), 0)
         RETURNING `+streamColumns,
		userID, params.Title, params.Description, params.ThumbnailURL, streamKey)

	stream, err := scanStream(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			span.SetStatus(codes.Error, "already live")
			return nil, fmt.Errorf("%w: a live stream already exists for this user", types.ErrConflict)
		}
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}
	return stream, nil
}

// EndStream flips the owner's live session to ended. The conditional
// update makes retries safe: a second call finds no live row and fails
// with types.ErrNotFound instead of touching the ended session.
func (r *PostgresStreamRepo) EndStream(ctx context.Context, userID uuid.UUID) (*types.Stream, error) {
	ctx, span := otel.Tracer("StreamRepo").Start(ctx, "EndStream")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	row := r.pgpool.QueryRow(ctx,
		`UPDATE streams
         SET is_live = FALSE, ended_at = now(), updated_at = now()
         WHERE user_id = $1 AND is_live
         RETURNING `+streamColumns,
		userID)

	stream, err := scanStream(row)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: no live stream for this user", types.ErrNotFound)
		}
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("failed to end stream: %w", err)
	}
	return stream, nil
}

// UpdateViewersCount applies an advisory delta, clamped at zero, while the
// stream is live. If the stream is not live the count is returned
// unchanged; the lost update is acceptable for telemetry.
func (r *PostgresStreamRepo) UpdateViewersCount(ctx context.Context, streamID uuid.UUID, delta int) (int, error) {
	var count int
	err := r.pgpool.QueryRow(ctx,
		`UPDATE streams
         SET viewers_count = GREATEST(0, viewers_count + $2), updated_at = now()
         WHERE id = $1 AND is_live
         RETURNING viewers_count`,
		streamID, delta).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to update viewers count: %w", err)
	}

	// Not live (or gone): report the current value without mutating.
	err = r.pgpool.QueryRow(ctx,
		`SELECT viewers_count FROM streams WHERE id = $1`, streamID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("stream: %w", types.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to read viewers count: %w", err)
	}
	return count, nil
}

func (r *PostgresStreamRepo) GetStreamByID(ctx context.Context, streamID uuid.UUID) (*types.Stream, error) {
	row := r.pgpool.QueryRow(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE id = $1`, streamID)
	return scanStream(row)
}

func (r *PostgresStreamRepo) ListLiveStreams(ctx context.Context) ([]types.Stream, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE is_live ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list live streams: %w", err)
	}
	return collectStreams(rows)
}

func (r *PostgresStreamRepo) ListStreamsByUser(ctx context.Context, userID uuid.UUID) ([]types.Stream, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user streams: %w", err)
	}
	return collectStreams(rows)
}

func (r *PostgresStreamRepo) SearchStreams(ctx context.Context, query string) ([]types.Stream, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT `+streamColumns+` FROM streams
         WHERE title ILIKE '%' || $1 || '%'
         ORDER BY is_live DESC, started_at DESC NULLS LAST`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search streams: %w", err)
	}
	return collectStreams(rows)
}

func (r *PostgresStreamRepo) DeleteStream(ctx context.Context, streamID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM streams WHERE id = $1 AND NOT is_live`, streamID)
	if err != nil {
		return fmt.Errorf("failed to delete stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stream not found or still live: %w", types.ErrNotFound)
	}
	return nil
}
