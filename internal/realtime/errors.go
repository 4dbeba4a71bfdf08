package realtime

import "errors"

// Membership and voice errors are surfaced to the requesting connection
// only, as a typed error event; they never affect the rest of the room.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrNotAParticipant     = errors.New("you are not a participant in this room")
	ErrAlreadyInOtherRoom  = errors.New("already in a different room")
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrNotInRoom           = errors.New("not in a room")
)

// Transport errors.
var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)
