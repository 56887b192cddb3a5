//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatroomd/domain"
	"context"
	"reflect"
)

// RoomStore is durable room-name keyed storage. Each Write is a
// full-snapshot overwrite; the last successful write is the durable
// truth. No business logic lives behind it.
type RoomStore interface {
	Write(record domain.RoomRecord) error
	// Read returns errors.ErrRoomNotFound when no record exists under name.
	Read(name string) (domain.RoomRecord, error)
	ListNames() ([]string, error)
}

// DeliverySink is the outbound delivery capability of one subscriber.
// Deliver must honor ctx: a slow or dead subscriber gets a bounded
// timeout, never a retry.
type DeliverySink interface {
	Deliver(ctx context.Context, message domain.Message) error
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func WorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
