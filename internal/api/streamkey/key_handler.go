package streamkey

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/api/auth"
	"github.com/diszexuf/streamlive/internal/types"
)

type StreamKeyHandler struct {
	keyService StreamKeyService
	logger     *slog.Logger
}

func NewStreamKeyHandler(keyService StreamKeyService, logger *slog.Logger) *StreamKeyHandler {
	return &StreamKeyHandler{
		keyService: keyService,
		logger:     logger,
	}
}

// ResolveIngestRequest is posted by the ingest server to authorize a
// publish attempt.
type ResolveIngestRequest struct {
	StreamKey string `json:"stream_key"`
}

// ResetStreamKey godoc
// @Summary      Rotate the stream key
// @Description  Generates a fresh ingest key for the authenticated user; the previous key becomes invalid immediately.
// @Tags         StreamKey
// @Produce      json
// @Success      200 {object} map[string]string "New key"
// @Security     BearerAuth
// @Router       /users/me/stream-key/reset [post]
func (h *StreamKeyHandler) ResetStreamKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ResetStreamKey"))

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	newKey, err := h.keyService.Rotate(ctx, principal)
	if err != nil {
		l.ErrorContext(ctx, "Failed to rotate stream key", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to rotate stream key")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"stream_key": newKey.String()})
}

// ResolveIngest maps a presented stream key to its owner. Any failure is
// a uniform 404 so key probing learns nothing.
func (h *StreamKeyHandler) ResolveIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResolveIngestRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	owner, err := h.keyService.ResolveOwner(ctx, req.StreamKey)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Unknown stream key")
		} else {
			h.logger.ErrorContext(ctx, "Failed to resolve stream key", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to resolve stream key")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, owner)
}
