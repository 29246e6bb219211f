package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/archive"
	"github.com/lox/blackjack/internal/game"
)

// ResultsSource lists archived games for the /results endpoint.
type ResultsSource interface {
	Recent(ctx context.Context, limit int) ([]archive.Game, error)
}

// Server represents the WebSocket server. It is also the game's
// Broadcaster: rooms publish through it to their member connections.
type Server struct {
	upgrader    websocket.Upgrader
	connections map[string]*Connection
	logger      *log.Logger
	mu          sync.RWMutex
	registry    *game.Registry
	results     ResultsSource
}

// Option configures a Server.
type Option func(*Server)

// WithResults enables the /results endpoint.
func WithResults(src ResultsSource) Option {
	return func(s *Server) { s.results = src }
}

// NewServer creates a new WebSocket server
func NewServer(logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			// Browsers connect from whatever origin serves the client.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*Connection),
		logger:      logger.WithPrefix("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRegistry sets the room registry that connections talk to
func (s *Server) SetRegistry(registry *game.Registry) {
	s.registry = registry
}

// Handler returns the HTTP handler serving every endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/rooms", s.handleRooms)
	mux.HandleFunc("/results", s.handleResults)
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Stop()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every open connection
func (s *Server) Stop() {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for _, conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close() // Ignore close errors during shutdown
	}
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn.ID()] = conn
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "conn", conn.ID(), "total", total)
}

// unregister forgets a closed connection and removes its player from any
// room. The registry call happens outside s.mu because rooms broadcast
// through the server while holding their own lock.
func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn.ID())
	total := len(s.connections)
	s.mu.Unlock()

	if s.registry != nil {
		s.registry.Leave(conn.ID())
	}
	s.logger.Info("Client disconnected", "conn", conn.ID(), "total", total)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.registry)
	s.register(client)
	client.Start()

	go func() {
		<-client.Done()
		s.unregister(client)
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// handleRooms lists live rooms
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms := []game.RoomSummary{}
	if s.registry != nil {
		rooms = s.registry.Rooms()
	}
	s.writeJSON(w, rooms)
}

// handleResults lists recently finished games from the archive
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		http.Error(w, "results archive disabled", http.StatusNotFound)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	games, err := s.results.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to load results", "error", err)
		http.Error(w, "failed to load results", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, games)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

// Join implements game.Broadcaster
func (s *Server) Join(roomID, connID string) {
	if conn := s.connection(connID); conn != nil {
		conn.SetRoom(roomID)
	}
}

// Leave implements game.Broadcaster
func (s *Server) Leave(roomID, connID string) {
	if conn := s.connection(connID); conn != nil && conn.Room() == roomID {
		conn.SetRoom("")
	}
}

// Broadcast sends an event to all connections in a room
func (s *Server) Broadcast(roomID string, ev game.Event) {
	msg, err := NewMessage(MessageType(ev.Type), ev.Payload)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, conn := range s.connections {
		if conn.Room() != roomID {
			continue
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Debug("Failed to send message to client", "error", err, "conn", conn.ID())
			continue
		}
		count++
	}

	s.logger.Debug("Broadcasted message to room", "room", roomID, "type", msg.Type, "recipients", count)
}

// Send delivers an event to a single connection
func (s *Server) Send(connID string, ev game.Event) {
	conn := s.connection(connID)
	if conn == nil {
		s.logger.Debug("Dropping message for unknown connection", "conn", connID, "type", ev.Type)
		return
	}
	msg, err := NewMessage(MessageType(ev.Type), ev.Payload)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}
	_ = conn.SendMessage(msg) // Closed connections are cleaned up by unregister
}

// ConnectionCount returns the number of open connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) connection(id string) *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections[id]
}
