package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/types"
)

type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates an identity with a fresh stream key and returns a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration parameters"
// @Success      201 {object} AuthResponse "Created"
// @Failure      400 {object} map[string]interface{} "Invalid input"
// @Failure      409 {object} map[string]interface{} "Username or email taken"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, profile, err := h.authService.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		l.WarnContext(ctx, "Registration failed", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, types.ErrInvalid):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, AuthResponse{Token: token, User: profile})
}

// Login godoc
// @Summary      Log in
// @Description  Verifies credentials and returns a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} AuthResponse "OK"
// @Failure      401 {object} map[string]interface{} "Invalid credentials"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		l.WarnContext(ctx, "Login failed", slog.Any("error", err))
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid credentials")
		} else {
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, AuthResponse{Token: token})
}
