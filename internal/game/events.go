package game

import (
	"context"
	"time"
)

// EventType names an outbound message. The values double as wire types.
type EventType string

const (
	EventRoomJoined         EventType = "room_joined"
	EventGameState          EventType = "game_state_update"
	EventBetCountdown       EventType = "bet_countdown"
	EventActionCountdown    EventType = "action_countdown"
	EventNextRoundCountdown EventType = "next_round_countdown"
	EventNotification       EventType = "notification"
	EventFinalRanking       EventType = "final_ranking"
)

// Event is an outbound message together with its payload.
type Event struct {
	Type    EventType
	Payload any
}

// RoomJoined confirms a create or join to the joining connection.
type RoomJoined struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// Countdown is the payload of the three countdown events.
type Countdown struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

// Notification is a free-text announcement to the room.
type Notification struct {
	Message string `json:"message"`
}

// Standing is one line of the final ranking.
type Standing struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Chips      int    `json:"chips"`
	Eliminated bool   `json:"eliminated"`
}

// FinalRanking is sent to each connection individually when a game ends.
type FinalRanking struct {
	Leaderboard []Standing `json:"leaderboard"`
	MyRank      int        `json:"myRank"`
	MyChips     int        `json:"myChips"`
}

// Broadcaster delivers events to connections. Rooms call it while holding
// their lock, so implementations must not block or call back into the game.
type Broadcaster interface {
	// Join adds a connection to a room's audience.
	Join(roomID, connID string)
	// Leave removes a connection from a room's audience.
	Leave(roomID, connID string)
	// Broadcast sends an event to every connection in the room, in order.
	Broadcast(roomID string, ev Event)
	// Send delivers an event to a single connection.
	Send(connID string, ev Event)
}

// GameRecord summarises a finished game for archiving.
type GameRecord struct {
	RoomID     string
	Rounds     int
	StartedAt  time.Time
	FinishedAt time.Time
	Standings  []Standing
}

// Recorder stores finished games. It is called outside any room lock.
type Recorder interface {
	Record(ctx context.Context, rec GameRecord) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, GameRecord) error { return nil }
