package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo covers the profile side of the identity store. Username and
// email are immutable after creation; only the non-invariant-bearing
// fields are updatable here.
type UserRepo interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool api.PgxPool
}

func NewPostgresUserRepo(pgpool api.PgxPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, username, email, password_hash, bio, avatar_url, stream_key,
       follower_count, authorities, enabled, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.AvatarURL,
		&u.StreamKey, &u.FollowerCount, &u.Authorities, &u.Enabled, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	row := r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// UpdateProfile applies a partial update; COALESCE keeps fields the
// caller did not provide.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	row := r.pgpool.QueryRow(ctx,
		`UPDATE users
         SET bio        = COALESCE($2, bio),
             avatar_url = COALESCE($3, avatar_url),
             updated_at = now()
         WHERE id = $1
         RETURNING `+userColumns,
		userID, params.Bio, params.AvatarURL)
	return scanUser(row)
}

// DeleteUser removes the identity; owned streams cascade in the schema.
func (r *PostgresUserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", types.ErrNotFound)
	}
	return nil
}
