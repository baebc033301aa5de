// Package domain contains core domain types for the advisor service.
package domain

import (
	"time"
)

// User is an anonymous, per-device visitor.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Language   string    `json:"language,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
