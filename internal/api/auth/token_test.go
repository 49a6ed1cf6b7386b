package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diszexuf/streamlive/config"
	"github.com/diszexuf/streamlive/internal/types"
)

func testCodec() *TokenCodec {
	return NewTokenCodec(config.JWTConfig{
		SecretKey: "test-secret",
		TokenTTL:  15 * time.Minute,
		Issuer:    "test-issuer",
		Audience:  "test-audience",
	})
}

func TestTokenCodec_IssueAndVerify(t *testing.T) {
	codec := testCodec()
	now := time.Now()
	userID := uuid.New()

	signed, err := codec.Issue(userID, "alice", []string{"user"}, now)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := codec.Verify(signed, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"user"}, claims.Roles)
	assert.Equal(t, "test-issuer", claims.Issuer)
}

func TestTokenCodec_Expired(t *testing.T) {
	codec := testCodec()
	now := time.Now()

	signed, err := codec.Issue(uuid.New(), "alice", []string{"user"}, now)
	require.NoError(t, err)

	// Verification clock past iat+TTL.
	_, err = codec.Verify(signed, now.Add(16*time.Minute))
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenCodec_TamperedSignature(t *testing.T) {
	codec := testCodec()
	now := time.Now()

	signed, err := codec.Issue(uuid.New(), "alice", []string{"user"}, now)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered, now)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	now := time.Now()
	signed, err := testCodec().Issue(uuid.New(), "alice", []string{"user"}, now)
	require.NoError(t, err)

	other := NewTokenCodec(config.JWTConfig{
		SecretKey: "other-secret",
		TokenTTL:  15 * time.Minute,
		Issuer:    "test-issuer",
		Audience:  "test-audience",
	})
	_, err = other.Verify(signed, now)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := testCodec()

	_, err := codec.Verify("not-a-token", time.Now())
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "malformed")
}

func TestTokenCodec_WrongIssuer(t *testing.T) {
	now := time.Now()
	other := NewTokenCodec(config.JWTConfig{
		SecretKey: "test-secret",
		TokenTTL:  15 * time.Minute,
		Issuer:    "someone-else",
		Audience:  "test-audience",
	})
	signed, err := other.Issue(uuid.New(), "alice", []string{"user"}, now)
	require.NoError(t, err)

	_, err = testCodec().Verify(signed, now)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "issuer")
}

func TestNewTokenCodec_EmptySecretPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewTokenCodec(config.JWTConfig{SecretKey: ""})
	})
}
