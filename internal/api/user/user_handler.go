package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/api/auth"
	"github.com/diszexuf/streamlive/internal/types"
)

type UserHandler struct {
	userService UserService
	logger      *slog.Logger
}

func NewUserHandler(userService UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetProfile godoc
// @Summary      Get own profile
// @Description  Returns the authenticated user's profile including the current stream key.
// @Tags         User
// @Produce      json
// @Success      200 {object} types.UserProfile "Profile"
// @Failure      401 {object} map[string]interface{} "Unauthorized"
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetProfile"))

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.userService.GetProfile(ctx, principal)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get profile", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve profile")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateProfile updates the caller's mutable profile fields.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateProfile"))

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.UpdateProfile(ctx, principal, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// DeleteAccount removes the caller's identity and all owned streams.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteAccount"))

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.userService.DeleteAccount(ctx, principal); err != nil {
		l.ErrorContext(ctx, "Failed to delete account", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete account")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
