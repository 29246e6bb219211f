package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeCreateRoom MessageType = "create_room"
	MessageTypeJoinRoom   MessageType = "join_room"
	MessageTypeStartGame  MessageType = "start_game"
	MessageTypePlaceBet   MessageType = "place_bet"
	MessageTypeHit        MessageType = "hit"
	MessageTypeStand      MessageType = "stand"

	// Server to client messages. Game events are forwarded under these names.
	MessageTypeError              MessageType = "error"
	MessageTypeRoomJoined         MessageType = "room_joined"
	MessageTypeGameState          MessageType = "game_state_update"
	MessageTypeBetCountdown       MessageType = "bet_countdown"
	MessageTypeActionCountdown    MessageType = "action_countdown"
	MessageTypeNextRoundCountdown MessageType = "next_round_countdown"
	MessageTypeNotification       MessageType = "notification"
	MessageTypeFinalRanking       MessageType = "final_ranking"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
