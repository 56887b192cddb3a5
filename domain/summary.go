package domain

// RoomSummary is what `list` exposes about a room: enough for a client
// to decide what to join, nothing more.
type RoomSummary struct {
	ID   RoomID
	Name string
}
