package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Policy rejections. Nothing is mutated when one of these is returned.
	ErrEmptyNickname = fmt.Errorf("empty nickname")
	ErrNicknameTaken = fmt.Errorf("nickname already in use")
	ErrEmptyRoomName = fmt.Errorf("empty room name")

	ErrRoomNotFound    = fmt.Errorf("room not found")
	ErrSessionNotFound = fmt.Errorf("session not found")

	// ErrPersistence wraps a failed durable write. The triggering call fails
	// and its in-memory mutation is rolled back first.
	ErrPersistence = fmt.Errorf("persistence failure")

	// ErrSlowConsumer is returned by a delivery sink whose buffer is full.
	// The subscriber behind it is queued for pruning, never retried inline.
	ErrSlowConsumer = fmt.Errorf("subscriber cannot keep up with delivery")
)
