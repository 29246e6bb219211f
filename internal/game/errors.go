package game

import "errors"

// Registry and membership errors. These are reported back to the caller.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrDuplicateRoom = errors.New("room already exists")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNotInRoom     = errors.New("not in a room")
	ErrInvalidName   = errors.New("player name must be 1-20 characters")
	ErrInvalidRoomID = errors.New("room id must be 1-32 letters, digits, '-' or '_'")
)

// Game rule errors. The transport logs these and otherwise ignores them.
var (
	ErrWrongPhase  = errors.New("action not allowed in current phase")
	ErrWrongStatus = errors.New("action not allowed for player status")
	ErrInvalidBet  = errors.New("bet must be a positive amount")
	ErrNoPlayers   = errors.New("no players able to play")
)
