package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/types"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticate validates the bearer token, resolves the subject against
// the identity store and places a Principal in the request context. It
// runs once per request; handlers extract the Principal and pass it
// explicitly into services. A missing, invalid or expired token, an
// unknown subject or a disabled account all end the request with 401.
func Authenticate(logger *slog.Logger, codec *TokenCodec, repo AuthRepo) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := codec.Verify(headerParts[1], time.Now())
			if err != nil {
				l.WarnContext(ctx, "Token verification failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, unauthenticatedMessage(err))
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				l.WarnContext(ctx, "Token subject is not a valid user ID", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token subject")
				return
			}

			// The token alone is not enough: the subject must still exist
			// and be enabled at request time.
			user, err := repo.GetUserByID(ctx, userID)
			if err != nil || !user.Enabled {
				l.WarnContext(ctx, "Token subject rejected", slog.String("user_id", claims.UserID))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token subject")
				return
			}

			principal := types.Principal{
				ID:       user.ID,
				Username: user.Username,
				Roles:    user.Authorities,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, principalKey, principal)))
		})
	}
}

// PrincipalFromContext returns the Principal resolved by Authenticate.
func PrincipalFromContext(ctx context.Context) (types.Principal, bool) {
	p, ok := ctx.Value(principalKey).(types.Principal)
	return p, ok
}

// ContextWithPrincipal is used by handler tests to simulate an
// authenticated request.
func ContextWithPrincipal(ctx context.Context, p types.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func unauthenticatedMessage(err error) string {
	s := err.Error()
	switch {
	case strings.Contains(s, "expired"):
		return "Token has expired"
	case strings.Contains(s, "malformed"):
		return "Malformed token"
	case strings.Contains(s, "signature"):
		return "Invalid token signature"
	default:
		return "Invalid or expired token"
	}
}
