package domain

import (
	"time"

	"github.com/google/uuid"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser      = Author("user")
	AuthorAssistant = Author("assistant")
)

// Message is one immutable entry in a conversation transcript.
type Message struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage stamps a message with a fresh id.
func NewMessage(author Author, text string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		CreatedAt: at,
	}
}
