package ws

import (
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"chatroomd/infrastructure/wire"
	"chatroomd/repositories"
	"chatroomd/runtime"
	"chatroomd/services"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *runtime.SessionRegistry) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.Default()
	directory := runtime.NewRoomDirectory(repositories.NewRoomRepository(db, logger), logger)
	registry := runtime.NewSessionRegistry(directory, logger)
	pruneQueue := make(chan domain.SessionID, 8)
	service := services.NewChatService(logger, directory, registry, pruneQueue, 500*time.Millisecond)

	gateway := NewGateway(logger, service, 16, 5*time.Second, 4096)
	server := httptest.NewServer(gateway.Routes())
	t.Cleanup(server.Close)
	return server, registry
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req wire.Request) wire.Response {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
	return readFrame(t, conn)
}

func readFrame(t *testing.T, conn *websocket.Conn) wire.Response {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp wire.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestGateway_Scenario_TwoClients(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	// Given alice logged in and in #general
	alice := dial(t, server)
	resp := roundTrip(t, alice, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeOK, resp.Type)
	req.NotZero(resp.SessionID)

	resp = roundTrip(t, alice, wire.Request{Op: wire.OpJoin, Room: "general"})
	req.Equal(wire.TypeOK, resp.Type)
	req.Empty(resp.Messages)

	// When alice sends "hi"
	resp = roundTrip(t, alice, wire.Request{Op: wire.OpSend, Room: "general", Content: "hi"})
	req.Equal(wire.TypeOK, resp.Type)
	req.Equal("hi", resp.Message.Content)

	// Then bob joins and the backlog is there
	bob := dial(t, server)
	resp = roundTrip(t, bob, wire.Request{Op: wire.OpLogin, Nickname: "bob"})
	req.Equal(wire.TypeOK, resp.Type)
	resp = roundTrip(t, bob, wire.Request{Op: wire.OpJoin, Room: "general"})
	req.Equal(wire.TypeOK, resp.Type)
	req.Len(resp.Messages, 1)
	req.Equal("alice", resp.Messages[0].Author)
	req.Equal("hi", resp.Messages[0].Content)

	// And a second message from alice is pushed to bob only
	resp = roundTrip(t, alice, wire.Request{Op: wire.OpSend, Room: "general", Content: "hey"})
	req.Equal(wire.TypeOK, resp.Type)

	push := readFrame(t, bob)
	req.Equal(wire.TypeMessage, push.Type)
	req.Equal("alice", push.Message.Author)
	req.Equal("hey", push.Message.Content)

	// The rooms list knows #general
	resp = roundTrip(t, bob, wire.Request{Op: wire.OpList})
	req.Equal(wire.TypeOK, resp.Type)
	req.Len(resp.Rooms, 1)
	req.Equal("general", resp.Rooms[0].Name)
}

func TestGateway_DuplicateLoginRejected(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	alice := dial(t, server)
	resp := roundTrip(t, alice, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeOK, resp.Type)

	imposter := dial(t, server)
	resp = roundTrip(t, imposter, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeError, resp.Type)
	req.Equal(apperrors.CodeRejected, resp.Code)
}

func TestGateway_OpsRequireLogin(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	conn := dial(t, server)
	resp := roundTrip(t, conn, wire.Request{Op: wire.OpSend, Room: "general", Content: "hi"})
	req.Equal(wire.TypeError, resp.Type)
	req.Equal(apperrors.CodeRejected, resp.Code)
}

func TestGateway_ConnectionCloseDisconnectsSession(t *testing.T) {
	req := require.New(t)
	server, registry := newTestServer(t)

	alice := dial(t, server)
	resp := roundTrip(t, alice, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeOK, resp.Type)
	req.Equal(1, registry.CountSessions())

	// When the connection goes away, the handle release is the only
	// disconnect signal needed.
	req.NoError(alice.Close())
	req.Eventually(func() bool {
		return registry.CountSessions() == 0
	}, 2*time.Second, 20*time.Millisecond)

	// And the nickname is free again
	again := dial(t, server)
	resp = roundTrip(t, again, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeOK, resp.Type)
}

func TestGateway_Names_ListsRoomMembers(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	alice := dial(t, server)
	resp := roundTrip(t, alice, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeOK, resp.Type)
	resp = roundTrip(t, alice, wire.Request{Op: wire.OpJoin, Room: "general"})
	req.Equal(wire.TypeOK, resp.Type)

	bob := dial(t, server)
	resp = roundTrip(t, bob, wire.Request{Op: wire.OpLogin, Nickname: "bob"})
	req.Equal(wire.TypeOK, resp.Type)
	resp = roundTrip(t, bob, wire.Request{Op: wire.OpJoin, Room: "general"})
	req.Equal(wire.TypeOK, resp.Type)

	resp = roundTrip(t, alice, wire.Request{Op: wire.OpNames, Room: "general"})
	req.Equal(wire.TypeOK, resp.Type)
	req.Equal([]string{"alice", "bob"}, resp.Members)
}

func TestGateway_Nick_OversizedNicknameReportsValidationError(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	conn := dial(t, server)
	resp := roundTrip(t, conn, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeOK, resp.Type)

	// When renaming to a name past the length limit
	oversized := strings.Repeat("x", 65)
	resp = roundTrip(t, conn, wire.Request{Op: wire.OpNick, Nickname: oversized})

	// Then the rejection names the violated constraint, not an empty nickname
	req.Equal(wire.TypeError, resp.Type)
	req.Equal(apperrors.CodeRejected, resp.Code)
	req.Contains(resp.Error, "max")
	req.NotContains(resp.Error, "empty")
}

func TestGateway_MessagesAfter_StaleCursorReturnsFullLog(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	alice := dial(t, server)
	resp := roundTrip(t, alice, wire.Request{Op: wire.OpLogin, Nickname: "alice"})
	req.Equal(wire.TypeOK, resp.Type)
	resp = roundTrip(t, alice, wire.Request{Op: wire.OpJoin, Room: "general"})
	req.Equal(wire.TypeOK, resp.Type)
	resp = roundTrip(t, alice, wire.Request{Op: wire.OpSend, Room: "general", Content: "hi"})
	req.Equal(wire.TypeOK, resp.Type)

	resp = roundTrip(t, alice, wire.Request{
		Op:     wire.OpMessagesAfter,
		Room:   "general",
		Cursor: &wire.Message{Author: "bob", Content: "xyz"},
	})
	req.Equal(wire.TypeOK, resp.Type)
	req.Len(resp.Messages, 1)
	req.Equal("hi", resp.Messages[0].Content)
}
