package runtime

import (
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"chatroomd/repositories"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *repositories.RoomRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repositories.NewRoomRepository(db, slog.Default())
}

func TestDirectory_GetOrCreate_IsIdempotent(t *testing.T) {
	req := require.New(t)
	directory := NewRoomDirectory(newTestRepository(t), slog.Default())

	// When the same name is resolved twice
	first, err := directory.GetOrCreate("general")
	req.NoError(err)
	second, err := directory.GetOrCreate("general")
	req.NoError(err)

	// Then both calls return the same live instance with the same id
	req.Same(first, second)
	req.Equal(first.ID(), second.ID())
	req.NotZero(first.ID())
}

func TestDirectory_GetOrCreate_EmptyName(t *testing.T) {
	req := require.New(t)
	directory := NewRoomDirectory(newTestRepository(t), slog.Default())

	_, err := directory.GetOrCreate("")
	req.ErrorIs(err, apperrors.ErrEmptyRoomName)
}

func TestDirectory_RoomIdentitySurvivesRestart(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)

	// Given a room persisted by a first directory
	directory := NewRoomDirectory(repository, slog.Default())
	room, err := directory.GetOrCreate("general")
	req.NoError(err)
	_, err = room.Post(domain.NewMessage("alice", "hi"), directory.Persist)
	req.NoError(err)

	// When a fresh directory restores it over the same store
	restartedDirectory := NewRoomDirectory(repository, slog.Default())
	restored, err := restartedDirectory.GetOrCreate("general")
	req.NoError(err)

	// Then id and log are reproduced, not regenerated
	req.Equal(room.ID(), restored.ID())
	req.Equal(room.Log(), restored.Log())
}

func TestDirectory_Lookup_DoesNotCreate(t *testing.T) {
	req := require.New(t)
	directory := NewRoomDirectory(newTestRepository(t), slog.Default())

	_, cached := directory.Lookup("general")
	req.False(cached)

	room, err := directory.GetOrCreate("general")
	req.NoError(err)

	found, cached := directory.Lookup("general")
	req.True(cached)
	req.Same(room, found)
}

func TestDirectory_ListAll_LazilyLoadsPersistedRooms(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)

	// Given rooms persisted by a previous process
	seed := NewRoomDirectory(repository, slog.Default())
	for _, name := range []string{"general", "random"} {
		room, err := seed.GetOrCreate(name)
		req.NoError(err)
		_, err = room.Post(domain.NewMessage("alice", "hi"), seed.Persist)
		req.NoError(err)
	}

	// When a fresh directory lists everything
	directory := NewRoomDirectory(repository, slog.Default())
	summaries, err := directory.ListAll()
	req.NoError(err)
	req.Len(summaries, 2)

	// Then the listed rooms are now cached with their persisted ids
	for _, summary := range summaries {
		room, cached := directory.Lookup(summary.Name)
		req.True(cached)
		req.Equal(room.ID(), summary.ID)
	}
}

func TestDirectory_ListAll_IncludesUnpersistedRooms(t *testing.T) {
	req := require.New(t)
	directory := NewRoomDirectory(newTestRepository(t), slog.Default())

	// Given a room that was created but never posted to
	room, err := directory.GetOrCreate("quiet")
	req.NoError(err)

	summaries, err := directory.ListAll()
	req.NoError(err)
	req.Len(summaries, 1)
	req.Equal(room.Name(), summaries[0].Name)
	req.Equal(room.ID(), summaries[0].ID)
}

func TestDirectory_Persist_WrapsStoreFailure(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	directory := NewRoomDirectory(repositories.NewRoomRepository(db, slog.Default()), slog.Default())

	// Given the store can no longer accept writes
	req.NoError(db.Close())

	err = directory.Persist(domain.RoomRecord{ID: 1, Name: "general"})
	req.ErrorIs(err, apperrors.ErrPersistence)
}
