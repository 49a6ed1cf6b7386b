package user

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/diszexuf/streamlive/internal/types"
)

// MockUserRepo is a mock implementation of the UserRepo interface
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func TestGetProfile(t *testing.T) {
	principal := types.Principal{ID: uuid.New(), Username: "alice", Roles: []string{"user"}}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, slog.Default())
		ctx := context.Background()

		user := &types.User{
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: "$2a$10$secret",
			StreamKey:    uuid.New(),
			Authorities:  []string{"user"},
			Enabled:      true,
		}
		user.ID = principal.ID

		mockRepo.On("GetUserByID", ctx, principal.ID).Return(user, nil).Once()

		profile, err := service.GetProfile(ctx, principal)

		require.NoError(t, err)
		assert.Equal(t, principal.ID, profile.ID)
		// The owner view carries the stream key; the password hash never
		// appears on any view.
		assert.Equal(t, user.StreamKey, profile.StreamKey)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, slog.Default())
		ctx := context.Background()

		mockRepo.On("GetUserByID", ctx, principal.ID).
			Return(nil, fmt.Errorf("user: %w", types.ErrNotFound)).Once()

		_, err := service.GetProfile(ctx, principal)

		assert.ErrorIs(t, err, types.ErrNotFound)
		mockRepo.AssertExpectations(t)
	})
}

func TestUpdateProfile(t *testing.T) {
	principal := types.Principal{ID: uuid.New(), Username: "alice", Roles: []string{"user"}}

	mockRepo := new(MockUserRepo)
	service := NewUserService(mockRepo, slog.Default())
	ctx := context.Background()

	bio := "streams on weekends"
	params := types.UpdateProfileParams{Bio: &bio}

	updated := &types.User{Username: "alice", Bio: &bio, StreamKey: uuid.New()}
	updated.ID = principal.ID

	mockRepo.On("UpdateProfile", ctx, principal.ID, params).Return(updated, nil).Once()

	profile, err := service.UpdateProfile(ctx, principal, params)

	require.NoError(t, err)
	require.NotNil(t, profile.Bio)
	assert.Equal(t, bio, *profile.Bio)
	mockRepo.AssertExpectations(t)
}

func TestDeleteAccount(t *testing.T) {
	principal := types.Principal{ID: uuid.New(), Username: "alice", Roles: []string{"user"}}

	mockRepo := new(MockUserRepo)
	service := NewUserService(mockRepo, slog.Default())
	ctx := context.Background()

	mockRepo.On("DeleteUser", ctx, principal.ID).Return(nil).Once()

	err := service.DeleteAccount(ctx, principal)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
