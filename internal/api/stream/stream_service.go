package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/diszexuf/streamlive/app/observability/metrics"
	"github.com/diszexuf/streamlive/internal/types"
)

var _ StreamService = (*StreamServiceImpl)(nil)

// IdentityReader is the slice of the identity store the stream service
// needs: the owner's current stream key, snapshotted at start time.
type IdentityReader interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

// StreamService drives the live-session state machine under the caller's
// identity. Mutations take the Principal resolved by the auth middleware;
// the owner always comes from it, never from the request body.
type StreamService interface {
	StartStream(ctx context.Context, principal types.Principal, params types.StartStreamParams) (*types.Stream, error)
	EndStream(ctx context.Context, principal types.Principal) (*types.Stream, error)
	UpdateViewersCount(ctx context.Context, streamID uuid.UUID, delta int) (int, error)
	DeleteStream(ctx context.Context, principal types.Principal, streamID uuid.UUID) error
	GetStreamByID(ctx context.Context, streamID uuid.UUID) (*types.Stream, error)
	ListLiveStreams(ctx context.Context) ([]types.Stream, error)
	ListStreamsByUser(ctx context.Context, userID uuid.UUID) ([]types.Stream, error)
	SearchStreams(ctx context.Context, query string) ([]types.Stream, error)
}

type StreamServiceImpl struct {
	logger     *slog.Logger
	repo       StreamRepo
	identities IdentityReader
}

func NewStreamService(repo StreamRepo, identities IdentityReader, logger *slog.Logger) *StreamServiceImpl {
	return &StreamServiceImpl{
		logger:     logger,
		repo:       repo,
		identities: identities,
	}
}

// StartStream transitions the caller from idle to live. If a live session
// already exists this fails with types.ErrConflict and changes nothing.
func (s *StreamServiceImpl) StartStream(ctx context.Context, principal types.Principal, params types.StartStreamParams) (*types.Stream, error) {
	l := s.logger.With(slog.String("method", "StartStream"), slog.String("user_id", principal.ID.String()))

	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", types.ErrInvalid)
	}

	owner, err := s.identities.GetUserByID(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stream owner: %w", err)
	}

	stream, err := s.repo.StartStream(ctx, principal.ID, owner.StreamKey, params)
	if err != nil {
		return nil, err
	}

	metrics.Get().StreamStartsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Stream started", slog.String("stream_id", stream.ID.String()))
	return stream, nil
}

// EndStream transitions the caller from live to idle, stamping ended_at.
func (s *StreamServiceImpl) EndStream(ctx context.Context, principal types.Principal) (*types.Stream, error) {
	l := s.logger.With(slog.String("method", "EndStream"), slog.String("user_id", principal.ID.String()))

	stream, err := s.repo.EndStream(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	metrics.Get().StreamEndsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Stream ended", slog.String("stream_id", stream.ID.String()))
	return stream, nil
}

func (s *StreamServiceImpl) UpdateViewersCount(ctx context.Context, streamID uuid.UUID, delta int) (int, error) {
	return s.repo.UpdateViewersCount(ctx, streamID, delta)
}

// DeleteStream removes an ended session owned by the caller.
func (s *StreamServiceImpl) DeleteStream(ctx context.Context, principal types.Principal, streamID uuid.UUID) error {
	stream, err := s.repo.GetStreamByID(ctx, streamID)
	if err != nil {
		return err
	}
	if stream.UserID != principal.ID {
		return fmt.Errorf("%w: not the stream owner", types.ErrForbidden)
	}
	if stream.IsLive {
		return fmt.Errorf("%w: cannot delete a live stream", types.ErrConflict)
	}
	return s.repo.DeleteStream(ctx, streamID)
}

func (s *StreamServiceImpl) GetStreamByID(ctx context.Context, streamID uuid.UUID) (*types.Stream, error) {
	return s.repo.GetStreamByID(ctx, streamID)
}

func (s *StreamServiceImpl) ListLiveStreams(ctx context.Context) ([]types.Stream, error) {
	return s.repo.ListLiveStreams(ctx)
}

func (s *StreamServiceImpl) ListStreamsByUser(ctx context.Context, userID uuid.UUID) ([]types.Stream, error) {
	return s.repo.ListStreamsByUser(ctx, userID)
}

func (s *StreamServiceImpl) SearchStreams(ctx context.Context, query string) ([]types.Stream, error) {
	return s.repo.SearchStreams(ctx, query)
}
