package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func noPersist(RoomRecord) error { return nil }

func TestRoom_Post_AppendsInSendOrder(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})

	// When three messages are posted
	sent := []Message{
		NewMessage("alice", "one"),
		NewMessage("alice", "two"),
		NewMessage("alice", "three"),
	}
	for _, m := range sent {
		_, err := room.Post(m, noPersist)
		req.NoError(err)
	}

	// Then the log is exactly the messages in send order
	req.Equal(sent, room.Log())
}

func TestRoom_Log_ReturnsASnapshot(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	_, err := room.Post(NewMessage("alice", "hi"), noPersist)
	req.NoError(err)

	// When a caller mutates the snapshot it got
	snapshot := room.Log()
	snapshot[0].Content = "tampered"

	// Then the room's log is unaffected
	req.Equal("hi", room.Log()[0].Content)
}

func TestRoom_Post_RollsBackWhenPersistFails(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	_, err := room.Post(NewMessage("alice", "kept"), noPersist)
	req.NoError(err)

	// When persistence fails for the second message
	boom := fmt.Errorf("disk full")
	targets, err := room.Post(NewMessage("alice", "lost"), func(RoomRecord) error { return boom })

	// Then the send fails and the log still matches the durable state
	req.ErrorIs(err, boom)
	req.Nil(targets)
	log := room.Log()
	req.Len(log, 1)
	req.Equal("kept", log[0].Content)
}

func TestRoom_Post_ExcludesAuthorByCurrentNickname(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	alice := NewSession("alice")
	bob := NewSession("bob")
	clara := NewSession("clara")
	room.Subscribe(alice)
	room.Subscribe(bob)
	room.Subscribe(clara)

	// When alice posts
	targets, err := room.Post(NewMessage(alice.Nickname(), "hi"), noPersist)
	req.NoError(err)

	// Then everyone but alice is a delivery target
	req.Len(targets, 2)
	req.NotContains(targets, alice)
	req.Contains(targets, bob)
	req.Contains(targets, clara)
}

func TestRoom_Post_ExclusionFollowsRename(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	alice := NewSession("alice")
	bob := NewSession("bob")
	room.Subscribe(alice)
	room.Subscribe(bob)

	// Given alice renamed after subscribing
	alice.SetNickname("alicia")

	// When a message authored under the new nickname is posted
	targets, err := room.Post(NewMessage("alicia", "still me"), noPersist)
	req.NoError(err)

	// Then the subscriber entry, held by identity, is excluded anyway
	req.Len(targets, 1)
	req.Contains(targets, bob)
}

func TestRoom_SubscribeUnsubscribe_Idempotent(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	alice := NewSession("alice")

	room.Subscribe(alice)
	room.Subscribe(alice)
	req.Len(room.Subscribers(), 1)

	room.Unsubscribe(alice)
	room.Unsubscribe(alice)
	req.Empty(room.Subscribers())
}

func TestRoom_SubscriberNames_SortedCurrentNicknames(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	alice := NewSession("alice")
	zoe := NewSession("zoe")
	room.Subscribe(zoe)
	room.Subscribe(alice)

	req.Equal([]string{"alice", "zoe"}, room.SubscriberNames())

	// A rename shows up immediately: names are read live, not cached
	alice.SetNickname("alicia")
	req.Equal([]string{"alicia", "zoe"}, room.SubscriberNames())
}

func TestRoom_MessagesAfter_ReturnsSuffix(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	for _, content := range []string{"one", "two", "three"} {
		_, err := room.Post(NewMessage("alice", content), noPersist)
		req.NoError(err)
	}

	// When polling with the middle message as cursor
	suffix := room.MessagesAfter(Message{Author: "alice", Content: "two"})

	// Then only what follows it comes back
	req.Len(suffix, 1)
	req.Equal("three", suffix[0].Content)
}

func TestRoom_MessagesAfter_LastMessageCursor_ReturnsEmpty(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	_, err := room.Post(NewMessage("alice", "only"), noPersist)
	req.NoError(err)

	req.Empty(room.MessagesAfter(Message{Author: "alice", Content: "only"}))
}

func TestRoom_MessagesAfter_UnknownCursor_ReturnsFullLog(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	for _, content := range []string{"one", "two"} {
		_, err := room.Post(NewMessage("alice", content), noPersist)
		req.NoError(err)
	}

	// When the cursor was never in the log, the client is stale:
	// resync from scratch.
	full := room.MessagesAfter(Message{Author: "bob", Content: "xyz"})
	req.Len(full, 2)
}

func TestRoom_MessagesAfter_DuplicateContent_FirstOccurrenceWins(t *testing.T) {
	req := require.New(t)
	room := NewRoom(RoomRecord{ID: 1, Name: "general"})
	for _, content := range []string{"echo", "middle", "echo", "tail"} {
		_, err := room.Post(NewMessage("alice", content), noPersist)
		req.NoError(err)
	}

	// When the cursor matches two entries, the earliest one is the
	// resume point; anything later would silently drop messages.
	suffix := room.MessagesAfter(Message{Author: "alice", Content: "echo"})
	req.Len(suffix, 3)
	req.Equal("middle", suffix[0].Content)
	req.Equal("echo", suffix[1].Content)
	req.Equal("tail", suffix[2].Content)
}

func TestMessage_Equal_IgnoresIDAndTimestamp(t *testing.T) {
	req := require.New(t)
	first := NewMessage("alice", "hi")
	second := NewMessage("alice", "hi")

	req.NotEqual(first.ID, second.ID)
	req.True(first.Equal(second))
	req.False(first.Equal(NewMessage("bob", "hi")))
	req.False(first.Equal(NewMessage("alice", "bye")))
}
