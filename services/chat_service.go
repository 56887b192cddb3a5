//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chatroomd/contract"
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"chatroomd/runtime"
	"context"
	"log/slog"
	"sync"
	"time"
)

type IChatService interface {
	Login(nickname string, sink contract.DeliverySink) (*domain.Session, *runtime.SessionHandle, error)
	ListRooms() ([]domain.RoomSummary, error)
	Join(session *domain.Session, roomName string) (*domain.Room, []domain.Message, error)
	Nick(session *domain.Session, nickname string) error
	Send(ctx context.Context, session *domain.Session, roomName, content string) (domain.Message, error)
	MessagesAfter(roomName string, cursor domain.Message) ([]domain.Message, error)
	Members(roomName string) ([]string, error)
}

// ChatService is the façade composing directory, registry and fan-out.
// One instance serves every connection.
type ChatService struct {
	log             *slog.Logger
	directory       *runtime.RoomDirectory
	registry        *runtime.SessionRegistry
	pruneQueue      chan<- domain.SessionID
	deliveryTimeout time.Duration
}

func NewChatService(log *slog.Logger, directory *runtime.RoomDirectory, registry *runtime.SessionRegistry,
	pruneQueue chan<- domain.SessionID, deliveryTimeout time.Duration) *ChatService {
	return &ChatService{
		log:             log,
		directory:       directory,
		registry:        registry,
		pruneQueue:      pruneQueue,
		deliveryTimeout: deliveryTimeout,
	}
}

// Login registers a new session bound to the caller's delivery sink and
// returns the handle whose release is the disconnect signal.
func (s *ChatService) Login(nickname string, sink contract.DeliverySink) (*domain.Session, *runtime.SessionHandle, error) {
	return s.registry.Login(nickname, sink)
}

func (s *ChatService) ListRooms() ([]domain.RoomSummary, error) {
	return s.directory.ListAll()
}

// Join resolves or creates the room, registers membership both ways
// (both idempotent) and returns the backlog so the caller can render it.
// A session whose handle was already torn down is refused: a pruned
// connection may still be dispatching, and must not leak back into any
// subscriber set.
func (s *ChatService) Join(session *domain.Session, roomName string) (*domain.Room, []domain.Message, error) {
	if !s.registry.IsLive(session.ID()) {
		return nil, nil, apperrors.ErrSessionNotFound
	}
	room, err := s.directory.GetOrCreate(roomName)
	if err != nil {
		return nil, nil, err
	}
	if err := s.registry.Join(session, room); err != nil {
		return nil, nil, err
	}
	return room, room.Log(), nil
}

func (s *ChatService) Nick(session *domain.Session, nickname string) error {
	return s.registry.Rename(session, nickname)
}

// Send appends the message to the room (authored with the session's
// current nickname), persists write-through, then fans it out to every
// other subscriber. Delivery runs concurrently per subscriber with a
// bounded timeout; a failed delivery queues that subscriber for pruning
// and never fails the send.
func (s *ChatService) Send(ctx context.Context, session *domain.Session, roomName, content string) (domain.Message, error) {
	if !s.registry.IsLive(session.ID()) {
		return domain.Message{}, apperrors.ErrSessionNotFound
	}
	room, err := s.directory.GetOrCreate(roomName)
	if err != nil {
		return domain.Message{}, err
	}

	message := domain.NewMessage(session.Nickname(), content)
	targets, err := room.Post(message, s.directory.Persist)
	if err != nil {
		return domain.Message{}, err
	}

	s.fanout(ctx, room.Name(), message, targets)
	return message, nil
}

// MessagesAfter is the polling variant: the suffix of the room log
// after the first message structurally equal to cursor, or the whole
// log when the cursor is unknown. A read never creates a room: a
// mistyped name is reported, not materialized.
func (s *ChatService) MessagesAfter(roomName string, cursor domain.Message) ([]domain.Message, error) {
	room, ok := s.directory.Lookup(roomName)
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room.MessagesAfter(cursor), nil
}

// Members lists the nicknames currently subscribed to a room.
func (s *ChatService) Members(roomName string) ([]string, error) {
	room, ok := s.directory.Lookup(roomName)
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room.SubscriberNames(), nil
}

func (s *ChatService) fanout(ctx context.Context, roomName string, message domain.Message, targets []*domain.Session) {
	var wg sync.WaitGroup
	for _, target := range targets {
		sink, live := s.registry.Sink(target.ID())
		if !live {
			// Disconnected between the subscriber snapshot and now.
			continue
		}

		wg.Add(1)
		go func(id domain.SessionID, sink contract.DeliverySink) {
			defer wg.Done()
			deliveryCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
			defer cancel()

			if err := sink.Deliver(deliveryCtx, message); err != nil {
				s.log.Warn("Delivery failed, queueing subscriber for pruning",
					"session_id", id, "room", roomName, "error", err)
				select {
				case s.pruneQueue <- id:
				default:
					s.log.Warn("Prune queue full, dropping candidate", "session_id", id)
				}
			}
		}(target.ID(), sink)
	}
	wg.Wait()
}
