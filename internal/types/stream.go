package types

import (
	"time"

	"github.com/google/uuid"
)

// Stream is one broadcast instance. At most one stream per owner is live
// at any instant; ended streams are immutable and never resurrected.
type Stream struct {
	Audit
	UserID            uuid.UUID  `json:"user_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	ThumbnailURL      *string    `json:"thumbnail_url,omitempty"`
	StreamKeySnapshot uuid.UUID  `json:"-"`
	IsLive            bool       `json:"is_live"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	ViewersCount      int        `json:"viewers_count"`
}

// StartStreamParams are the caller-supplied fields for going live. The
// owner always comes from the authenticated principal, never the body.
type StartStreamParams struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}
