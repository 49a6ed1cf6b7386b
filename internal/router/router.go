package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/diszexuf/streamlive/internal/api/auth"
	"github.com/diszexuf/streamlive/internal/api/stream"
	"github.com/diszexuf/streamlive/internal/api/streamkey"
	"github.com/diszexuf/streamlive/internal/api/user"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UserHandler            *user.UserHandler
	StreamHandler          *stream.StreamHandler
	StreamKeyHandler       *streamkey.StreamKeyHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are applied
// before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// --- Public routes ---
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)

			r.Get("/streams/live", cfg.StreamHandler.ListLive)
			r.Get("/streams/search", cfg.StreamHandler.Search)
			r.Get("/streams/{streamID}", cfg.StreamHandler.GetStream)
			r.Patch("/streams/{streamID}/viewers", cfg.StreamHandler.UpdateViewers)
			r.Get("/users/{userID}/streams", cfg.StreamHandler.ListByUser)

			// Boundary for the ingest server: key -> identity.
			r.Post("/ingest/resolve", cfg.StreamKeyHandler.ResolveIngest)
		})

		// --- Protected routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/users/me", cfg.UserHandler.GetProfile)
			r.Put("/users/me", cfg.UserHandler.UpdateProfile)
			r.Delete("/users/me", cfg.UserHandler.DeleteAccount)
			r.Post("/users/me/stream-key/reset", cfg.StreamKeyHandler.ResetStreamKey)

			r.Post("/streams/start", cfg.StreamHandler.StartStream)
			r.Post("/streams/end", cfg.StreamHandler.EndStream)
			r.Delete("/streams/{streamID}", cfg.StreamHandler.DeleteStream)
		})
	})

	return r
}
