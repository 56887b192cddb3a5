package ws

import (
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"context"
)

// Sink is the per-connection outbound delivery capability. Consume side
// is the room fan-out; the connection's write pump drains Events.
type Sink struct {
	Events chan domain.Message
}

func NewSink(bufferSize int) *Sink {
	return &Sink{Events: make(chan domain.Message, bufferSize)}
}

// Deliver hands the message to the connection's write pump. It blocks
// until there is buffer space or ctx expires: the caller bounds every
// delivery with a timeout, and a timeout marks this subscriber as a
// pruning candidate.
func (s *Sink) Deliver(ctx context.Context, message domain.Message) error {
	select {
	case s.Events <- message:
		return nil
	case <-ctx.Done():
		return apperrors.ErrSlowConsumer
	}
}
