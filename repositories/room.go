package repositories

import (
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const roomKeyPrefix = "room:"

// RoomRepository persists full room snapshots in BadgerDB, one record
// per room keyed as "room:{name}". Every write overwrites the previous
// snapshot inside a transaction, so readers never observe a partial one.
type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: log}
}

// storedRoom is the on-disk shape of a room record. Field order is
// fixed, so a restore-then-persist cycle with no intervening mutation
// produces byte-identical output.
type storedRoom struct {
	ID       uint32          `json:"id"`
	Name     string          `json:"name"`
	Messages []storedMessage `json:"messages"`
}

type storedMessage struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
	At      int64  `json:"at"`
}

func (r *RoomRepository) Write(record domain.RoomRecord) error {
	bytes, err := json.Marshal(fromRecord(record))
	if err != nil {
		return fmt.Errorf("encoding room %q: %w", record.Name, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(record.Name), bytes)
	})
	if err != nil {
		return fmt.Errorf("writing room %q: %w", record.Name, err)
	}
	r.log.Debug("Room snapshot written", "room", record.Name, "messages", len(record.Messages))
	return nil
}

func (r *RoomRepository) Read(name string) (domain.RoomRecord, error) {
	var bytes []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(name))
		if err != nil {
			return err
		}
		bytes, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.RoomRecord{}, apperrors.ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomRecord{}, fmt.Errorf("reading room %q: %w", name, err)
	}

	var stored storedRoom
	if err = json.Unmarshal(bytes, &stored); err != nil {
		return domain.RoomRecord{}, fmt.Errorf("decoding room %q: %w", name, err)
	}
	return toRecord(stored)
}

// ListNames enumerates every persisted room name with a key-only
// prefix scan; values are not prefetched.
func (r *RoomRepository) ListNames() ([]string, error) {
	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(roomKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	return names, nil
}

func roomKey(name string) []byte {
	return []byte(roomKeyPrefix + name)
}

func fromRecord(record domain.RoomRecord) storedRoom {
	return storedRoom{
		ID:   uint32(record.ID),
		Name: record.Name,
		Messages: lo.Map(record.Messages, func(m domain.Message, _ int) storedMessage {
			return storedMessage{
				ID:      m.ID.String(),
				Author:  m.Author,
				Content: m.Content,
				At:      m.SentAt.UnixNano(),
			}
		}),
	}
}

func toRecord(stored storedRoom) (domain.RoomRecord, error) {
	messages := make([]domain.Message, 0, len(stored.Messages))
	for _, m := range stored.Messages {
		parsedID, err := uuid.Parse(m.ID)
		if err != nil {
			return domain.RoomRecord{}, fmt.Errorf("message id %q: %w", m.ID, err)
		}
		messages = append(messages, domain.Message{
			ID:      parsedID,
			Author:  m.Author,
			Content: m.Content,
			SentAt:  time.Unix(0, m.At).UTC(),
		})
	}
	return domain.RoomRecord{
		ID:       domain.RoomID(stored.ID),
		Name:     stored.Name,
		Messages: messages,
	}, nil
}
