package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diszexuf/streamlive/internal/types"
)

var userCols = []string{
	"id", "username", "email", "password_hash", "bio", "avatar_url", "stream_key",
	"follower_count", "authorities", "enabled", "last_login_at", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresAuthRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresAuthRepo(mockPool, slog.Default())
}

func userRow(id, streamKey uuid.UUID) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(userCols).
		AddRow(id, "alice", "alice@example.com", "$2a$10$hash", (*string)(nil), (*string)(nil),
			streamKey, 0, []string{"user"}, true, (*time.Time)(nil), now, now)
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		userID := uuid.New()
		streamKey := uuid.New()

		mockPool.ExpectQuery(`INSERT INTO users`).
			WithArgs("alice", "alice@example.com", "$2a$10$hash", streamKey).
			WillReturnRows(userRow(userID, streamKey))

		user, err := repo.CreateUser(context.Background(), "alice", "alice@example.com", "$2a$10$hash", streamKey)

		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, streamKey, user.StreamKey)
		assert.Equal(t, []string{"user"}, user.Authorities)
		assert.True(t, user.Enabled)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		streamKey := uuid.New()

		mockPool.ExpectQuery(`INSERT INTO users`).
			WithArgs("alice", "alice@example.com", "$2a$10$hash", streamKey).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"})

		user, err := repo.CreateUser(context.Background(), "alice", "alice@example.com", "$2a$10$hash", streamKey)

		assert.ErrorIs(t, err, types.ErrConflict)
		assert.Nil(t, user)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetUserByUsername(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		userID := uuid.New()

		mockPool.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
			WithArgs("alice").
			WillReturnRows(userRow(userID, uuid.New()))

		user, err := repo.GetUserByUsername(context.Background(), "alice")

		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		user, err := repo.GetUserByUsername(context.Background(), "ghost")

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Nil(t, user)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUsernameExists(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	mockPool.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.UsernameExists(context.Background(), "alice")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateLastLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		userID := uuid.New()

		mockPool.ExpectExec(`UPDATE users SET last_login_at`).
			WithArgs(pgxmock.AnyArg(), userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateLastLogin(context.Background(), userID)

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnknownUser", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		userID := uuid.New()

		mockPool.ExpectExec(`UPDATE users SET last_login_at`).
			WithArgs(pgxmock.AnyArg(), userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateLastLogin(context.Background(), userID)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
