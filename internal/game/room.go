package game

import (
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/deck"
)

// Phase is a state of the room state machine.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseBetting Phase = "betting"
	PhaseAction  Phase = "action"
	PhaseDealer  Phase = "dealer"
	PhaseResult  Phase = "result"
)

// DeckSource builds the deck for a new round.
type DeckSource func(rng *rand.Rand) *deck.Deck

// Room is one isolated game. All fields are guarded by mu, and every
// exported method takes it.
type Room struct {
	mu sync.Mutex

	id        string
	rules     Rules
	clock     quartz.Clock
	rng       *rand.Rand
	newDeck   DeckSource
	out       Broadcaster
	logger    *log.Logger
	createdAt time.Time

	// onClose is called once, with mu held, when the room is destroyed.
	onClose func(*Room)
	// onFinish is called with mu held when the final ranking is sent.
	onFinish func(GameRecord)

	players  map[string]*Player
	nextSeat int
	phase    Phase
	round    int
	deck     *deck.Deck
	dealer   Dealer

	timers map[timerKind]*armedTimer
	epoch  uint64

	// settling is set once the action phase has completed but the dealer
	// has not started yet.
	settling bool
	finished bool
	closed   bool
}

type roomConfig struct {
	rules    Rules
	clock    quartz.Clock
	rng      *rand.Rand
	newDeck  DeckSource
	out      Broadcaster
	logger   *log.Logger
	onClose  func(*Room)
	onFinish func(GameRecord)
}

func newRoom(id string, cfg roomConfig) *Room {
	newDeck := cfg.newDeck
	if newDeck == nil {
		newDeck = deck.NewShuffled
	}
	return &Room{
		id:        id,
		rules:     cfg.rules,
		clock:     cfg.clock,
		rng:       cfg.rng,
		newDeck:   newDeck,
		out:       cfg.out,
		logger:    cfg.logger.WithPrefix("room").With("room", id),
		createdAt: cfg.clock.Now(),
		onClose:   cfg.onClose,
		onFinish:  cfg.onFinish,
		players:   make(map[string]*Player),
		phase:     PhaseWaiting,
		timers:    make(map[timerKind]*armedTimer),
	}
}

// ID returns the room identifier.
func (r *Room) ID() string {
	return r.id
}

// State returns the current projection of the room.
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.project()
}

// RoomSummary describes a room in listings.
type RoomSummary struct {
	ID         string `json:"id"`
	Phase      Phase  `json:"phase"`
	Round      int    `json:"round"`
	MaxRounds  int    `json:"maxRounds"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
}

// Summary returns a short description of the room.
func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSummary{
		ID:         r.id,
		Phase:      r.phase,
		Round:      r.round,
		MaxRounds:  r.rules.MaxRounds,
		Players:    len(r.players),
		MaxPlayers: r.rules.MaxPlayers,
	}
}

func (r *Room) join(connID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.finished {
		return ErrRoomNotFound
	}
	if _, ok := r.players[connID]; ok {
		return ErrAlreadyInRoom
	}
	if len(r.players) >= r.rules.MaxPlayers {
		return ErrRoomFull
	}

	r.players[connID] = newPlayer(connID, name, r.rules.StartingChips, r.nextSeat)
	r.nextSeat++
	r.logger.Info("Player joined", "player", connID, "name", name, "phase", r.phase, "players", len(r.players))

	r.out.Join(r.id, connID)
	r.out.Send(connID, Event{Type: EventRoomJoined, Payload: RoomJoined{RoomID: r.id, PlayerID: connID}})
	r.broadcastState()
	return nil
}

// leave removes a player. An emptied room is destroyed; otherwise the
// current phase gets a chance to complete without them.
func (r *Room) leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[connID]
	if r.closed || !ok {
		return
	}
	delete(r.players, connID)
	r.out.Leave(r.id, connID)
	r.logger.Info("Player left", "player", connID, "name", p.Name, "phase", r.phase, "players", len(r.players))

	if len(r.players) == 0 {
		r.destroy()
		return
	}
	if !r.tryAdvance(r.phase, false) {
		r.broadcastState()
	}
}

func (r *Room) start(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if _, ok := r.players[connID]; !ok {
		return ErrNotInRoom
	}
	if r.phase != PhaseWaiting {
		return fmt.Errorf("start game: %w", ErrWrongPhase)
	}
	if !r.anyActive() {
		return ErrNoPlayers
	}
	r.logger.Info("Starting game", "players", len(r.players), "rounds", r.rules.MaxRounds)
	r.round = 1
	r.enterBetting()
	return nil
}

func (r *Room) placeBet(connID string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.player(connID)
	if err != nil {
		return err
	}
	if r.phase != PhaseBetting {
		return fmt.Errorf("place bet: %w", ErrWrongPhase)
	}
	if p.Status != StatusBetting {
		return fmt.Errorf("place bet as %s: %w", p.Status, ErrWrongStatus)
	}
	if amount <= 0 {
		return ErrInvalidBet
	}

	p.Bet = amount
	p.Status = StatusBetted
	r.logger.Debug("Bet placed", "player", connID, "amount", amount)
	if !r.tryAdvance(PhaseBetting, false) {
		r.broadcastState()
	}
	return nil
}

func (r *Room) hit(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.acting(connID, "hit")
	if err != nil {
		return err
	}
	c, err := r.deck.Draw()
	if err != nil {
		r.voidRound(err)
		return nil
	}
	p.take(c)
	if p.Score > deck.Blackjack {
		p.Status = StatusBust
	}
	r.logger.Debug("Hit", "player", connID, "card", c, "score", p.Score, "status", p.Status)
	if !r.tryAdvance(PhaseAction, false) {
		r.broadcastState()
	}
	return nil
}

func (r *Room) stand(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.acting(connID, "stand")
	if err != nil {
		return err
	}
	p.Status = StatusStand
	r.logger.Debug("Stand", "player", connID, "score", p.Score)
	if !r.tryAdvance(PhaseAction, false) {
		r.broadcastState()
	}
	return nil
}

// shutdown stops the room without sending anything further.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClose = nil
	r.destroy()
}

func (r *Room) player(connID string) (*Player, error) {
	if r.closed {
		return nil, ErrRoomNotFound
	}
	p, ok := r.players[connID]
	if !ok {
		return nil, ErrNotInRoom
	}
	return p, nil
}

func (r *Room) acting(connID, action string) (*Player, error) {
	p, err := r.player(connID)
	if err != nil {
		return nil, err
	}
	if r.phase != PhaseAction || r.settling {
		return nil, fmt.Errorf("%s: %w", action, ErrWrongPhase)
	}
	if p.Status != StatusPlaying {
		return nil, fmt.Errorf("%s as %s: %w", action, p.Status, ErrWrongStatus)
	}
	return p, nil
}

// seated returns the players in join order.
func (r *Room) seated() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seat < out[j].seat })
	return out
}

func (r *Room) anyActive() bool {
	for _, p := range r.players {
		if !p.Eliminated {
			return true
		}
	}
	return false
}

func (r *Room) anyWithStatus(s Status) bool {
	for _, p := range r.players {
		if p.Status == s {
			return true
		}
	}
	return false
}

func (r *Room) emit(t EventType, payload any) {
	r.out.Broadcast(r.id, Event{Type: t, Payload: payload})
}

func (r *Room) broadcastState() {
	r.emit(EventGameState, r.project())
}

func (r *Room) notify(msg string) {
	r.emit(EventNotification, Notification{Message: msg})
}

// destroy stops all timers and detaches the room. Callers hold r.mu.
func (r *Room) destroy() {
	if r.closed {
		return
	}
	r.clearTimers()
	r.closed = true
	for id := range r.players {
		r.out.Leave(r.id, id)
	}
	r.logger.Info("Room closed", "round", r.round, "players", len(r.players))
	if r.onClose != nil {
		r.onClose(r)
	}
}
