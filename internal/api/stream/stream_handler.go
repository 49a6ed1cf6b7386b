package stream

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/api/auth"
	"github.com/diszexuf/streamlive/internal/types"
)

type StreamHandler struct {
	streamService StreamService
	logger        *slog.Logger
}

func NewStreamHandler(streamService StreamService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		streamService: streamService,
		logger:        logger,
	}
}

// UpdateViewersRequest carries the advisory viewer-count delta.
type UpdateViewersRequest struct {
	Delta int `json:"delta"`
}

// StartStream godoc
// @Summary      Start broadcasting
// @Description  Creates a live session for the authenticated user.
// @Tags         Streams
// @Accept       json
// @Produce      json
// @Param        body body types.StartStreamParams true "Stream parameters"
// @Success      201 {object} types.Stream "Created"
// @Failure      409 {object} map[string]interface{} "Already live"
// @Security     BearerAuth
// @Router       /streams/start [post]
func (h *StreamHandler) StartStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "StartStream"))

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.StartStreamParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stream, err := h.streamService.StartStream(ctx, principal, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to start stream", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "A live stream already exists")
		case errors.Is(err, types.ErrInvalid):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to start stream")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, stream)
}

// EndStream godoc
// @Summary      Stop broadcasting
// @Description  Ends the authenticated user's live session.
// @Tags         Streams
// @Produce      json
// @Success      200 {object} types.Stream "Ended"
// @Failure      404 {object} map[string]interface{} "No live stream"
// @Security     BearerAuth
// @Router       /streams/end [post]
func (h *StreamHandler) EndStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "EndStream"))

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	stream, err := h.streamService.EndStream(ctx, principal)
	if err != nil {
		l.WarnContext(ctx, "Failed to end stream", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "No live stream to end")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to end stream")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, stream)
}

// UpdateViewers adjusts the advisory viewer count of a live stream.
func (h *StreamHandler) UpdateViewers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	streamID, err := uuid.Parse(chi.URLParam(r, "streamID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid stream ID")
		return
	}

	var req UpdateViewersRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.streamService.UpdateViewersCount(ctx, streamID, req.Delta)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Stream not found")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update viewers count")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]int{"viewers_count": count})
}

// GetStream returns one stream by id.
func (h *StreamHandler) GetStream(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuid.Parse(chi.URLParam(r, "streamID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid stream ID")
		return
	}

	stream, err := h.streamService.GetStreamByID(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Stream not found")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve stream")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, stream)
}

// ListLive returns every currently live stream.
func (h *StreamHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	streams, err := h.streamService.ListLiveStreams(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list live streams", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list live streams")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, streams)
}

// ListByUser returns all streams owned by a user.
func (h *StreamHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	streams, err := h.streamService.ListStreamsByUser(r.Context(), userID)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list streams")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, streams)
}

// Search finds streams by title substring.
func (h *StreamHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	streams, err := h.streamService.SearchStreams(r.Context(), query)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to search streams")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, streams)
}

// DeleteStream removes an ended stream owned by the caller.
func (h *StreamHandler) DeleteStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	streamID, err := uuid.Parse(chi.URLParam(r, "streamID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid stream ID")
		return
	}

	if err := h.streamService.DeleteStream(ctx, principal, streamID); err != nil {
		switch {
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "Not the stream owner")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Stream not found")
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Cannot delete a live stream")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete stream")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
