package types

import (
	"time"

	"github.com/google/uuid"
)

// Audit carries the shared id/timestamp fields embedded by each aggregate.
type Audit struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a registered identity. Username and email are unique and
// immutable after creation; StreamKey is the live-ingest capability
// credential and is unique across all users.
type User struct {
	Audit
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Bio           *string    `json:"bio,omitempty"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	StreamKey     uuid.UUID  `json:"-"`
	FollowerCount int        `json:"follower_count"`
	Authorities   []string   `json:"authorities"`
	Enabled       bool       `json:"enabled"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// UserProfile is the owner-facing view of a User; it is the only place
// the stream key leaves the server.
type UserProfile struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Bio           *string    `json:"bio,omitempty"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	StreamKey     uuid.UUID  `json:"stream_key"`
	FollowerCount int        `json:"follower_count"`
	Authorities   []string   `json:"authorities"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// UpdateProfileParams holds the mutable, non-invariant-bearing profile
// fields. Pointers distinguish "not provided" from "set to empty".
type UpdateProfileParams struct {
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		StreamKey:     u.StreamKey,
		FollowerCount: u.FollowerCount,
		Authorities:   u.Authorities,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}
