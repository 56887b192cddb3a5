// Package domain contains core concepts of the chat system:
// messages, rooms and sessions. No runtime, network, or storage
// logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. It is never mutated
// after creation.
type Message struct {
	ID      uuid.UUID
	Author  string
	Content string
	SentAt  time.Time
}

// NewMessage stamps a message with a fresh id and the current UTC time.
// The author is the sender's nickname at the moment of sending.
func NewMessage(author, content string) Message {
	return Message{
		ID:      uuid.New(),
		Author:  author,
		Content: content,
		SentAt:  time.Now().UTC(),
	}
}

// Equal compares two messages structurally by author and content.
// The id and timestamp do not participate: a polling client resuming
// from a cursor only knows what it has read, not what the server
// stamped on it.
func (m Message) Equal(other Message) bool {
	return m.Author == other.Author && m.Content == other.Content
}
