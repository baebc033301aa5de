// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/krishimitra/advisor/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting users and support tickets.
// Chat transcripts are never stored.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns ErrNotFound
	// when the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// CreateTicket stores a support ticket.
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error

	// ListTickets returns a user's tickets, newest first.
	ListTickets(ctx context.Context, userID string) ([]*domain.Ticket, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
