package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/diszexuf/streamlive/config"
	"github.com/diszexuf/streamlive/internal/api"
	"github.com/diszexuf/streamlive/internal/types"
)

// Claims is the token payload: subject identity plus role claims.
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 bearer tokens. Verification is a
// pure function of (token, now, secret); it never touches a store, and
// tokens are never persisted server-side. Expiry forces re-issuance.
type TokenCodec struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
}

func NewTokenCodec(cfg config.JWTConfig) *TokenCodec {
	if cfg.SecretKey == "" {
		panic("JWT secret key cannot be empty")
	}
	return &TokenCodec{
		secret:   []byte(cfg.SecretKey),
		ttl:      cfg.TokenTTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Issue produces a signed token with iat=now and exp=now+TTL.
func (c *TokenCodec) Issue(userID uuid.UUID, username string, roles []string, now time.Time) (string, error) {
	claims := &Claims{
		UserID:   userID.String(),
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and time bounds against the supplied clock and
// returns the claims. All failures wrap types.ErrUnauthenticated.
func (c *TokenCodec) Verify(raw string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", types.ErrUnauthenticated)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token has expired", types.ErrUnauthenticated)
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, fmt.Errorf("%w: invalid token signature", types.ErrUnauthenticated)
		default:
			return nil, fmt.Errorf("%w: invalid token", types.ErrUnauthenticated)
		}
	}

	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", types.ErrUnauthenticated)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: invalid token issuer", types.ErrUnauthenticated)
	}
	if !api.VerifyAudience(claims.Audience, c.audience) {
		return nil, fmt.Errorf("%w: invalid token audience", types.ErrUnauthenticated)
	}

	return claims, nil
}
