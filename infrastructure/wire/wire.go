// Package wire defines the JSON envelope spoken between the chat
// server and its clients over one websocket connection. Each request
// is a capability-style operation on the caller's session; the
// server-initiated "message" frame is the push delivery channel.
package wire

import (
	"chatroomd/domain"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Operations a client can invoke.
const (
	OpLogin         = "login"
	OpList          = "list"
	OpJoin          = "join"
	OpNick          = "nick"
	OpSend          = "send"
	OpMessagesAfter = "messages_after"
	OpNames         = "names"
)

// Response frame types.
const (
	TypeOK      = "ok"
	TypeError   = "error"
	TypeMessage = "message" // server push, not tied to a request
)

type Request struct {
	Op       string   `json:"op"`
	Nickname string   `json:"nickname,omitempty"`
	Room     string   `json:"room,omitempty"`
	Content  string   `json:"content,omitempty"`
	Cursor   *Message `json:"cursor,omitempty"`
}

type Message struct {
	ID      string `json:"id,omitempty"`
	Author  string `json:"author"`
	Content string `json:"content"`
	SentAt  int64  `json:"sent_at,omitempty"`
}

type RoomSummary struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type Response struct {
	Type string `json:"type"`
	Op   string `json:"op,omitempty"`

	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`

	SessionID uint32        `json:"session_id,omitempty"`
	Room      string        `json:"room,omitempty"`
	Message   *Message      `json:"message,omitempty"`
	Messages  []Message     `json:"messages,omitempty"`
	Rooms     []RoomSummary `json:"rooms,omitempty"`
	Members   []string      `json:"members,omitempty"`
}

func FromDomainMessage(m domain.Message) Message {
	return Message{
		ID:      m.ID.String(),
		Author:  m.Author,
		Content: m.Content,
		SentAt:  m.SentAt.UnixNano(),
	}
}

func FromDomainMessages(messages []domain.Message) []Message {
	return lo.Map(messages, func(m domain.Message, _ int) Message {
		return FromDomainMessage(m)
	})
}

// ToDomainMessage rebuilds a domain message from its wire form. A
// malformed or absent id is tolerated: cursor comparison is structural
// over author and content only.
func ToDomainMessage(m Message) domain.Message {
	parsedID, _ := uuid.Parse(m.ID)
	return domain.Message{
		ID:      parsedID,
		Author:  m.Author,
		Content: m.Content,
		SentAt:  time.Unix(0, m.SentAt).UTC(),
	}
}

func FromDomainSummaries(summaries []domain.RoomSummary) []RoomSummary {
	return lo.Map(summaries, func(s domain.RoomSummary, _ int) RoomSummary {
		return RoomSummary{ID: uint32(s.ID), Name: s.Name}
	})
}
