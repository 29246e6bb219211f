package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	roomID    string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	registry  *game.Registry
}

// NewConnection creates a new connection wrapper with a fresh identity
func NewConnection(conn *websocket.Conn, logger *log.Logger, registry *game.Registry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		id:       id,
		conn:     conn,
		send:     make(chan *Message, 256),
		logger:   logger.WithPrefix("conn").With("conn", id),
		ctx:      ctx,
		cancel:   cancel,
		registry: registry,
	}
}

// ID returns the connection identity, which doubles as the player id
func (c *Connection) ID() string {
	return c.id
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client without blocking
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx.Err() != nil {
		return ErrConnectionClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		go func() { _ = c.Close() }()
		return ErrConnectionClosed
	}
}

// SetRoom associates this connection with a room
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// Room returns the associated room ID
func (c *Connection) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var ErrConnectionClosed = errors.New("connection closed")

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.sendError("invalid_message", "Malformed message")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "room", c.Room())

	switch msg.Type {
	case MessageTypeCreateRoom:
		var data CreateRoomData
		if !c.decode(msg, &data) {
			return
		}
		c.reply(c.registry.Create(c.id, data.RoomID, data.PlayerName))

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if !c.decode(msg, &data) {
			return
		}
		c.reply(c.registry.Join(c.id, data.RoomID, data.PlayerName))

	case MessageTypeStartGame:
		c.ignore(msg.Type, c.registry.Start(c.id))

	case MessageTypePlaceBet:
		var data PlaceBetData
		if !c.decode(msg, &data) {
			return
		}
		c.ignore(msg.Type, c.registry.PlaceBet(c.id, data.RoomID, data.Amount))

	case MessageTypeHit, MessageTypeStand:
		var data ActionData
		if len(msg.Data) > 0 && !c.decode(msg, &data) {
			return
		}
		if msg.Type == MessageTypeHit {
			c.ignore(msg.Type, c.registry.Hit(c.id, data.RoomID))
		} else {
			c.ignore(msg.Type, c.registry.Stand(c.id, data.RoomID))
		}

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) decode(msg *Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError("invalid_message", "Failed to parse "+msg.Type.String()+" data")
		return false
	}
	return true
}

// reply reports a failed create or join to the client. Success is
// confirmed by the room itself with room_joined.
func (c *Connection) reply(err error) {
	if err == nil {
		return
	}
	c.logger.Info("Request rejected", "error", err)
	c.sendError(errorCode(err), err.Error())
}

// ignore logs a rejected game action. Clients learn the outcome from the
// next state update.
func (c *Connection) ignore(t MessageType, err error) {
	if err != nil {
		c.logger.Debug("Action rejected", "type", t, "error", err)
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

var errorCodes = []struct {
	err  error
	code string
}{
	{game.ErrRoomNotFound, "room_not_found"},
	{game.ErrRoomFull, "room_full"},
	{game.ErrDuplicateRoom, "duplicate_room"},
	{game.ErrAlreadyInRoom, "already_in_room"},
	{game.ErrInvalidName, "invalid_name"},
	{game.ErrInvalidRoomID, "invalid_room_id"},
	{game.ErrNotInRoom, "not_in_room"},
}

// errorCode maps a registry error to a stable wire code.
func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "request_failed"
}
