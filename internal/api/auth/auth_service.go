package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/diszexuf/streamlive/app/observability/metrics"
	"github.com/diszexuf/streamlive/config"
	"github.com/diszexuf/streamlive/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService covers registration and login. Both return a signed bearer
// token; neither reveals whether a username exists on failure.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (string, *types.UserProfile, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	codec  *TokenCodec
	cost   int
}

func NewAuthService(repo AuthRepo, codec *TokenCodec, authCfg config.AuthConfig, logger *slog.Logger) *AuthServiceImpl {
	cost := authCfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		codec:  codec,
		cost:   cost,
	}
}

func validateRegistration(username, email, password string) error {
	if l := len(username); l < 1 || l > 50 {
		return fmt.Errorf("%w: username must be between 1 and 50 characters", types.ErrInvalid)
	}
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", types.ErrInvalid)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", types.ErrInvalid)
	}
	return nil
}

// Register creates an identity with the default role set, a fresh stream
// key and enabled=true, then issues a token for it.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (string, *types.UserProfile, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", username))

	if err := validateRegistration(username, email, password); err != nil {
		return "", nil, err
	}

	usernameTaken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check username availability: %w", err)
	}
	emailTaken, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check email availability: %w", err)
	}
	switch {
	case usernameTaken && emailTaken:
		return "", nil, fmt.Errorf("%w: username and email are already taken", types.ErrConflict)
	case usernameTaken:
		return "", nil, fmt.Errorf("%w: username is already taken", types.ErrConflict)
	case emailTaken:
		return "", nil, fmt.Errorf("%w: email is already taken", types.ErrConflict)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// The existence checks above race with concurrent registrations; the
	// schema's unique constraints are the authority and turn the loser
	// into a conflict here.
	user, err := s.repo.CreateUser(ctx, username, email, string(hashed), uuid.New())
	if err != nil {
		return "", nil, err
	}

	token, err := s.codec.Issue(user.ID, user.Username, user.Authorities, time.Now())
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.Get().RegistrationsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "User registered", slog.String("user_id", user.ID.String()))
	return token, user.Profile(), nil
}

// Login verifies credentials and issues a token. Unknown username, wrong
// password and disabled account all produce the same ErrUnauthenticated.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("username", username))

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", fmt.Errorf("%w: invalid credentials", types.ErrUnauthenticated)
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.Enabled {
		return "", fmt.Errorf("%w: invalid credentials", types.ErrUnauthenticated)
	}

	// CompareHashAndPassword is constant-time; a malformed stored hash
	// reads as a mismatch rather than an internal error.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid credentials", types.ErrUnauthenticated)
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		l.WarnContext(ctx, "Failed to update last login", slog.Any("error", err))
	}

	token, err := s.codec.Issue(user.ID, user.Username, user.Authorities, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.Get().LoginsTotal.Add(ctx, 1)
	return token, nil
}
