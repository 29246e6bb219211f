package game

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/randutil"
)

const (
	maxNameLength = 20
	recordTimeout = 5 * time.Second
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Registry owns every live room and the connection → room membership.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	members map[string]*Room

	rules    Rules
	clock    quartz.Clock
	seeder   *randutil.Seeder
	decks    DeckSource
	out      Broadcaster
	recorder Recorder
	logger   *log.Logger

	pending sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithRules sets the rules copied into every new room.
func WithRules(rules Rules) Option {
	return func(reg *Registry) { reg.rules = rules }
}

// WithClock sets the clock used by room timers.
func WithClock(clock quartz.Clock) Option {
	return func(reg *Registry) { reg.clock = clock }
}

// WithSeed roots every room's shuffle in seed. Zero picks a random seed.
func WithSeed(seed int64) Option {
	return func(reg *Registry) { reg.seeder = randutil.NewSeeder(seed) }
}

// WithDeckSource overrides how each round's deck is built.
func WithDeckSource(src DeckSource) Option {
	return func(reg *Registry) { reg.decks = src }
}

// WithRecorder archives finished games.
func WithRecorder(rec Recorder) Option {
	return func(reg *Registry) { reg.recorder = rec }
}

// NewRegistry creates an empty registry that publishes through out.
func NewRegistry(out Broadcaster, logger *log.Logger, opts ...Option) *Registry {
	reg := &Registry{
		rooms:    make(map[string]*Room),
		members:  make(map[string]*Room),
		rules:    DefaultRules(),
		clock:    quartz.NewReal(),
		out:      out,
		recorder: nopRecorder{},
		logger:   logger.WithPrefix("registry"),
	}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.seeder == nil {
		reg.seeder = randutil.NewSeeder(0)
	}
	reg.logger.Debug("Registry ready", "seed", reg.seeder.Base(), "maxPlayers", reg.rules.MaxPlayers, "rounds", reg.rules.MaxRounds)
	return reg
}

// Create makes a new room and seats connID in it as its first player.
func (reg *Registry) Create(connID, roomID, name string) error {
	name, err := validateJoin(roomID, name)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	if _, ok := reg.members[connID]; ok {
		reg.mu.Unlock()
		return ErrAlreadyInRoom
	}
	if _, ok := reg.rooms[roomID]; ok {
		reg.mu.Unlock()
		return fmt.Errorf("create %q: %w", roomID, ErrDuplicateRoom)
	}
	room := newRoom(roomID, roomConfig{
		rules:    reg.rules,
		clock:    reg.clock,
		rng:      reg.seeder.Next(),
		newDeck:  reg.decks,
		out:      reg.out,
		logger:   reg.logger,
		onClose:  reg.remove,
		onFinish: reg.record,
	})
	reg.rooms[roomID] = room
	reg.members[connID] = room
	reg.mu.Unlock()

	if err := reg.seat(room, connID, name); err != nil {
		reg.mu.Lock()
		if reg.rooms[roomID] == room {
			delete(reg.rooms, roomID)
		}
		reg.mu.Unlock()
		return err
	}
	reg.logger.Info("Room created", "room", roomID, "by", connID)
	return nil
}

// Join seats connID in an existing room.
func (reg *Registry) Join(connID, roomID, name string) error {
	name, err := validateJoin(roomID, name)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	if _, ok := reg.members[connID]; ok {
		reg.mu.Unlock()
		return ErrAlreadyInRoom
	}
	room, ok := reg.rooms[roomID]
	if !ok {
		reg.mu.Unlock()
		return fmt.Errorf("join %q: %w", roomID, ErrRoomNotFound)
	}
	reg.members[connID] = room
	reg.mu.Unlock()

	return reg.seat(room, connID, name)
}

// seat completes a reserved membership, undoing it if the room refuses.
func (reg *Registry) seat(room *Room, connID, name string) error {
	if err := room.join(connID, name); err != nil {
		reg.mu.Lock()
		if reg.members[connID] == room {
			delete(reg.members, connID)
		}
		reg.mu.Unlock()
		return fmt.Errorf("join %q: %w", room.ID(), err)
	}
	return nil
}

// Leave removes connID from its room, if any. Connections call it when
// they close.
func (reg *Registry) Leave(connID string) {
	reg.mu.Lock()
	room, ok := reg.members[connID]
	delete(reg.members, connID)
	reg.mu.Unlock()
	if ok {
		room.leave(connID)
	}
}

// Start begins the game in the caller's room.
func (reg *Registry) Start(connID string) error {
	room, err := reg.roomOf(connID, "")
	if err != nil {
		return err
	}
	return room.start(connID)
}

// PlaceBet records a bet for the caller. An empty roomID means the
// caller's current room.
func (reg *Registry) PlaceBet(connID, roomID string, amount int) error {
	room, err := reg.roomOf(connID, roomID)
	if err != nil {
		return err
	}
	return room.placeBet(connID, amount)
}

// Hit draws a card for the caller.
func (reg *Registry) Hit(connID, roomID string) error {
	room, err := reg.roomOf(connID, roomID)
	if err != nil {
		return err
	}
	return room.hit(connID)
}

// Stand ends the caller's turn.
func (reg *Registry) Stand(connID, roomID string) error {
	room, err := reg.roomOf(connID, roomID)
	if err != nil {
		return err
	}
	return room.stand(connID)
}

// State returns the projection of a room.
func (reg *Registry) State(roomID string) (State, error) {
	reg.mu.Lock()
	room, ok := reg.rooms[roomID]
	reg.mu.Unlock()
	if !ok {
		return State{}, ErrRoomNotFound
	}
	return room.State(), nil
}

// RoomOf returns the id of the room connID belongs to.
func (reg *Registry) RoomOf(connID string) (string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.members[connID]
	if !ok {
		return "", false
	}
	return room.ID(), true
}

// Rooms lists every live room sorted by id.
func (reg *Registry) Rooms() []RoomSummary {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close destroys every room and waits for pending archive writes.
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := reg.rooms
	reg.rooms = make(map[string]*Room)
	reg.members = make(map[string]*Room)
	reg.mu.Unlock()

	for _, room := range rooms {
		room.shutdown()
	}
	reg.pending.Wait()
	reg.logger.Info("Registry closed", "rooms", len(rooms))
}

func (reg *Registry) roomOf(connID, roomID string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.members[connID]
	if !ok {
		return nil, ErrNotInRoom
	}
	if roomID != "" && room.ID() != roomID {
		return nil, fmt.Errorf("room %q: %w", roomID, ErrNotInRoom)
	}
	return room, nil
}

// remove is the rooms' onClose hook. It runs with the room's lock held.
func (reg *Registry) remove(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.rooms[room.ID()] == room {
		delete(reg.rooms, room.ID())
	}
	for connID, r := range reg.members {
		if r == room {
			delete(reg.members, connID)
		}
	}
}

// record hands a finished game to the recorder without holding any lock.
func (reg *Registry) record(rec GameRecord) {
	reg.pending.Add(1)
	go func() {
		defer reg.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := reg.recorder.Record(ctx, rec); err != nil {
			reg.logger.Error("Failed to record game", "room", rec.RoomID, "error", err)
			return
		}
		reg.logger.Debug("Game recorded", "room", rec.RoomID, "players", len(rec.Standings))
	}()
}

func validateJoin(roomID, name string) (string, error) {
	if !roomIDPattern.MatchString(roomID) {
		return "", ErrInvalidRoomID
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
