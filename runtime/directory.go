package runtime

import (
	"chatroomd/contract"
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// RoomDirectory is the in-memory cache over the room store. It is the
// exclusive owner of all live Room objects: for the life of the process
// a given name always resolves to the same instance.
type RoomDirectory struct {
	mu    sync.Mutex
	store contract.RoomStore
	rooms map[string]*domain.Room
	log   *slog.Logger
}

func NewRoomDirectory(store contract.RoomStore, log *slog.Logger) *RoomDirectory {
	return &RoomDirectory{
		store: store,
		rooms: make(map[string]*domain.Room),
		log:   log,
	}
}

// GetOrCreate resolves a room by name: cached instance first, then the
// store, and finally a brand new room with a freshly generated id. The
// id is assigned exactly once; re-creating from storage keeps it.
func (d *RoomDirectory) GetOrCreate(name string) (*domain.Room, error) {
	if name == "" {
		return nil, apperrors.ErrEmptyRoomName
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if room, ok := d.rooms[name]; ok {
		return room, nil
	}

	record, err := d.store.Read(name)
	switch {
	case errors.Is(err, apperrors.ErrRoomNotFound):
		record = domain.RoomRecord{
			ID:   domain.RoomID(uuid.New().ID()),
			Name: name,
		}
		d.log.Info("New room", "room", name, "room_id", record.ID)
	case err != nil:
		return nil, err
	default:
		d.log.Info("Loading room", "room", name, "room_id", record.ID, "messages", len(record.Messages))
	}

	room := domain.NewRoom(record)
	d.rooms[name] = room
	return room, nil
}

// Lookup returns the cached room, if any, without touching the store.
// Disconnect cleanup uses it so a dead session cannot resurrect a room.
func (d *RoomDirectory) Lookup(name string) (*domain.Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[name]
	return room, ok
}

// Persist writes a room snapshot through to the store. Called
// synchronously after every log mutation: write-through, no batching.
func (d *RoomDirectory) Persist(record domain.RoomRecord) error {
	if err := d.store.Write(record); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

// ListAll enumerates every known room: the ones on disk, lazily loading
// any not yet cached, plus cached rooms that have not been persisted yet
// (joined but never posted to).
func (d *RoomDirectory) ListAll() ([]domain.RoomSummary, error) {
	names, err := d.store.ListNames()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(names))
	summaries := make([]domain.RoomSummary, 0, len(names))
	for _, name := range names {
		room, err := d.GetOrCreate(name)
		if err != nil {
			return nil, err
		}
		seen[name] = struct{}{}
		summaries = append(summaries, domain.RoomSummary{ID: room.ID(), Name: room.Name()})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for name, room := range d.rooms {
		if _, ok := seen[name]; ok {
			continue
		}
		summaries = append(summaries, domain.RoomSummary{ID: room.ID(), Name: room.Name()})
	}
	return summaries, nil
}
