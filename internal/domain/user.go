// Package domain contains core domain types for the MindCare service.
package domain

import (
	"time"
)

// User represents a registered chat user. Users are created lazily on first
// contact; the user ID is an opaque identifier assigned by the transport layer.
type User struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
