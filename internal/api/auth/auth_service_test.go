package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/diszexuf/streamlive/config"
	"github.com/diszexuf/streamlive/internal/types"
)

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, username, email, passwordHash string, streamKey uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, username, email, passwordHash, streamKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestService(repo AuthRepo) *AuthServiceImpl {
	codec := NewTokenCodec(config.JWTConfig{
		SecretKey: "test-secret",
		TokenTTL:  15 * time.Minute,
		Issuer:    "test-issuer",
		Audience:  "test-audience",
	})
	// MinCost keeps the bcrypt work factor cheap for tests.
	return NewAuthService(repo, codec, config.AuthConfig{BcryptCost: bcrypt.MinCost}, slog.Default())
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()

		created := &types.User{
			Username:    "newuser",
			Email:       "new@example.com",
			StreamKey:   uuid.New(),
			Authorities: []string{"user"},
			Enabled:     true,
		}
		created.ID = uuid.New()

		// Set up expectations - the hash and generated key are unpredictable
		mockRepo.On("UsernameExists", ctx, "newuser").Return(false, nil).Once()
		mockRepo.On("EmailExists", ctx, "new@example.com").Return(false, nil).Once()
		mockRepo.On("CreateUser", ctx, "newuser", "new@example.com",
			mock.AnythingOfType("string"), mock.AnythingOfType("uuid.UUID")).Return(created, nil).Once()

		token, profile, err := service.Register(ctx, "newuser", "new@example.com", "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, created.ID, profile.ID)
		assert.Equal(t, created.StreamKey, profile.StreamKey)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()

		mockRepo.On("UsernameExists", ctx, "existing").Return(true, nil).Once()
		mockRepo.On("EmailExists", ctx, "new@example.com").Return(false, nil).Once()

		token, profile, err := service.Register(ctx, "existing", "new@example.com", "password123")

		assert.ErrorIs(t, err, types.ErrConflict)
		assert.Contains(t, err.Error(), "username")
		assert.Empty(t, token)
		assert.Nil(t, profile)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmailTaken", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()

		mockRepo.On("UsernameExists", ctx, "newuser").Return(false, nil).Once()
		mockRepo.On("EmailExists", ctx, "existing@example.com").Return(true, nil).Once()

		_, _, err := service.Register(ctx, "newuser", "existing@example.com", "password123")

		assert.ErrorIs(t, err, types.ErrConflict)
		assert.Contains(t, err.Error(), "email")
		mockRepo.AssertExpectations(t)
	})

	t.Run("ConcurrentDuplicate", func(t *testing.T) {
		// Existence checks passed but the insert lost a race; the schema
		// conflict must surface unchanged.
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()

		mockRepo.On("UsernameExists", ctx, "racer").Return(false, nil).Once()
		mockRepo.On("EmailExists", ctx, "racer@example.com").Return(false, nil).Once()
		mockRepo.On("CreateUser", ctx, "racer", "racer@example.com",
			mock.AnythingOfType("string"), mock.AnythingOfType("uuid.UUID")).
			Return(nil, types.ErrConflict).Once()

		_, _, err := service.Register(ctx, "racer", "racer@example.com", "password123")

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertExpectations(t)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()

		cases := []struct {
			name     string
			username string
			email    string
			password string
		}{
			{"EmptyUsername", "", "a@b.com", "password123"},
			{"LongUsername", string(make([]byte, 51)), "a@b.com", "password123"},
			{"BadEmail", "user", "not-an-email", "password123"},
			{"ShortPassword", "user", "a@b.com", "12345"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, _, err := service.Register(ctx, tc.username, tc.email, tc.password)
				assert.ErrorIs(t, err, types.ErrInvalid)
			})
		}
		// No repo calls for invalid input.
		mockRepo.AssertExpectations(t)
	})
}

func TestLogin(t *testing.T) {
	password := "password123"
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)

	validUser := func() *types.User {
		u := &types.User{
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: string(hashed),
			Authorities:  []string{"user"},
			Enabled:      true,
		}
		u.ID = uuid.New()
		return u
	}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()
		user := validUser()

		mockRepo.On("GetUserByUsername", ctx, "testuser").Return(user, nil).Once()
		mockRepo.On("UpdateLastLogin", ctx, user.ID).Return(nil).Once()

		token, err := service.Login(ctx, "testuser", password)

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()

		mockRepo.On("GetUserByUsername", ctx, "ghost").Return(nil, types.ErrNotFound).Once()

		token, err := service.Login(ctx, "ghost", password)

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		assert.Empty(t, token)
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()

		mockRepo.On("GetUserByUsername", ctx, "testuser").Return(validUser(), nil).Once()

		token, err := service.Login(ctx, "testuser", "wrongpassword")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		assert.Empty(t, token)
		mockRepo.AssertExpectations(t)
	})

	t.Run("DisabledAccount", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()
		user := validUser()
		user.Enabled = false

		mockRepo.On("GetUserByUsername", ctx, "testuser").Return(user, nil).Once()

		_, err := service.Login(ctx, "testuser", password)

		// Indistinguishable from a bad password.
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		assert.Contains(t, err.Error(), "invalid credentials")
		mockRepo.AssertExpectations(t)
	})

	t.Run("LastLoginFailureIsNotFatal", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := newTestService(mockRepo)
		ctx := context.Background()
		user := validUser()

		mockRepo.On("GetUserByUsername", ctx, "testuser").Return(user, nil).Once()
		mockRepo.On("UpdateLastLogin", ctx, user.ID).Return(assert.AnError).Once()

		token, err := service.Login(ctx, "testuser", password)

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		mockRepo.AssertExpectations(t)
	})
}
