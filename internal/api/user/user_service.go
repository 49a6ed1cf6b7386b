package user

import (
	"context"
	"log/slog"

	"github.com/diszexuf/streamlive/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService exposes the caller's own profile. Every operation acts on
// the principal's identity; there is no way to address another user's
// mutable state through it.
type UserService interface {
	GetProfile(ctx context.Context, principal types.Principal) (*types.UserProfile, error)
	UpdateProfile(ctx context.Context, principal types.Principal, params types.UpdateProfileParams) (*types.UserProfile, error)
	DeleteAccount(ctx context.Context, principal types.Principal) error
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, principal types.Principal) (*types.UserProfile, error) {
	user, err := s.repo.GetUserByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, principal types.Principal, params types.UpdateProfileParams) (*types.UserProfile, error) {
	user, err := s.repo.UpdateProfile(ctx, principal.ID, params)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

func (s *UserServiceImpl) DeleteAccount(ctx context.Context, principal types.Principal) error {
	s.logger.InfoContext(ctx, "Deleting account", slog.String("user_id", principal.ID.String()))
	return s.repo.DeleteUser(ctx, principal.ID)
}
