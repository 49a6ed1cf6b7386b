package streamkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/diszexuf/streamlive/app/observability/metrics"
	"github.com/diszexuf/streamlive/internal/types"
)

var _ StreamKeyService = (*StreamKeyServiceImpl)(nil)

const resolveCacheTTL = 30 * time.Second

// StreamKeyService manages the live-ingest capability credential.
type StreamKeyService interface {
	// Rotate replaces the caller's stream key with a freshly generated
	// one and returns it. The old key stops resolving the moment the
	// rotation commits.
	Rotate(ctx context.Context, principal types.Principal) (uuid.UUID, error)

	// ResolveOwner maps a presented key to its owner for the ingest
	// server. A malformed key and an unknown key are indistinguishable:
	// both are types.ErrNotFound.
	ResolveOwner(ctx context.Context, rawKey string) (*KeyOwner, error)
}

type StreamKeyServiceImpl struct {
	logger *slog.Logger
	repo   StreamKeyRepo
	cache  *gocache.Cache
}

func NewStreamKeyService(repo StreamKeyRepo, logger *slog.Logger) *StreamKeyServiceImpl {
	return &StreamKeyServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  gocache.New(resolveCacheTTL, 2*resolveCacheTTL),
	}
}

func (s *StreamKeyServiceImpl) Rotate(ctx context.Context, principal types.Principal) (uuid.UUID, error) {
	l := s.logger.With(slog.String("method", "Rotate"), slog.String("user_id", principal.ID.String()))

	newKey := uuid.New()
	oldKey, err := s.repo.RotateStreamKey(ctx, principal.ID, newKey)
	if errors.Is(err, types.ErrConflict) {
		// A v4 collision is effectively impossible; retry once anyway.
		newKey = uuid.New()
		oldKey, err = s.repo.RotateStreamKey(ctx, principal.ID, newKey)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to rotate stream key: %w", err)
	}

	// Evict the replaced key so ingest lookups cannot be served a stale
	// entry after the rotation committed.
	s.cache.Delete(oldKey.String())

	metrics.Get().KeyRotationsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Stream key rotated")
	return newKey, nil
}

func (s *StreamKeyServiceImpl) ResolveOwner(ctx context.Context, rawKey string) (*KeyOwner, error) {
	metrics.Get().IngestResolvesTotal.Add(ctx, 1)

	key, err := uuid.Parse(rawKey)
	if err != nil {
		// Same outcome as a wrong key; probers learn nothing from the shape.
		return nil, fmt.Errorf("stream key: %w", types.ErrNotFound)
	}

	if cached, found := s.cache.Get(key.String()); found {
		owner := cached.(KeyOwner)
		return &owner, nil
	}

	owner, err := s.repo.GetOwnerByStreamKey(ctx, key)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key.String(), *owner, gocache.DefaultExpiration)
	return owner, nil
}
