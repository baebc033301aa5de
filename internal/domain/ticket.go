package domain

import "time"

// TicketStatus tracks a support ticket's lifecycle.
type TicketStatus string

const (
	TicketPending  = TicketStatus("pending")
	TicketResolved = TicketStatus("resolved")
)

// Ticket is a support desk question with its answer.
type Ticket struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Message   string       `json:"message"`
	Response  string       `json:"response"`
	Category  string       `json:"category"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
