package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

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

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the identity-store boundary the auth core requires.
// Uniqueness of username, email and stream key is enforced by the schema;
// a conflicting write surfaces types.ErrConflict, never a silent overwrite.
type AuthRepo interface {
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, username, email, passwordHash string, streamKey uuid.UUID) (*types.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool api.PgxPool
}

func NewPostgresAuthRepo(pgpool api.PgxPool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
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

// isUniqueViolation reports whether err is a schema uniqueness conflict.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *PostgresAuthRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByUsername")
	defer span.End()

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	return user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	return user, nil
}

func (r *PostgresAuthRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("username existence check failed: %w", err)
	}
	return exists, nil
}

func (r *PostgresAuthRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("email existence check failed: %w", err)
	}
	return exists, nil
}

// CreateUser inserts a new identity with the default role set. A duplicate
// username, email or stream key fails with types.ErrConflict.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, username, email, passwordHash string, streamKey uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser")
	defer span.End()

	row := r.pgpool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, stream_key)
         VALUES ($1, $2, $3, $4)
         RETURNING `+userColumns,
		username, email, passwordHash, streamKey)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "unique violation")
			return nil, fmt.Errorf("username, email or stream key already taken: %w", types.ErrConflict)
		}
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET last_login_at = $1 WHERE id = $2`, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("update last login: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", types.ErrNotFound)
	}
	return nil
}
