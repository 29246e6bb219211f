package game

import (
	"context"
	"io"
	rand "math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type sentEvent struct {
	roomID string
	connID string
	event  Event
}

// recorder captures everything a room publishes.
type recorder struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	events  []sentEvent
}

func newRecorder() *recorder {
	return &recorder{members: make(map[string]map[string]bool)}
}

func (r *recorder) Join(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]bool)
	}
	r.members[roomID][connID] = true
}

func (r *recorder) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[roomID], connID)
}

func (r *recorder) Broadcast(roomID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{roomID: roomID, event: ev})
}

func (r *recorder) Send(connID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{connID: connID, event: ev})
}

// broadcasts returns the payloads of room-wide events of type t.
func (r *recorder) broadcasts(roomID string, t EventType) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.roomID == roomID && e.event.Type == t {
			out = append(out, e.event.Payload)
		}
	}
	return out
}

// direct returns the payloads of events of type t sent to connID alone.
func (r *recorder) direct(connID string, t EventType) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.connID == connID && e.event.Type == t {
			out = append(out, e.event.Payload)
		}
	}
	return out
}

func (r *recorder) countdowns(roomID string, t EventType) []int {
	var out []int
	for _, p := range r.broadcasts(roomID, t) {
		out = append(out, p.(Countdown).SecondsRemaining)
	}
	return out
}

func (r *recorder) lastState(t *testing.T, roomID string) State {
	t.Helper()
	states := r.broadcasts(roomID, EventGameState)
	require.NotEmpty(t, states, "no state broadcast for %s", roomID)
	return states[len(states)-1].(State)
}

func (r *recorder) isMember(roomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[roomID][connID]
}

// stackedDecks deals the given decks in order, one per round, then falls
// back to shuffled decks.
func stackedDecks(decks ...*deck.Deck) DeckSource {
	var mu sync.Mutex
	return func(rng *rand.Rand) *deck.Deck {
		mu.Lock()
		defer mu.Unlock()
		if len(decks) == 0 {
			return deck.NewShuffled(rng)
		}
		d := decks[0]
		decks = decks[1:]
		return d
	}
}

type harness struct {
	t     *testing.T
	clock *quartz.Mock
	out   *recorder
	reg   *Registry
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	clock := quartz.NewMock(t)
	out := newRecorder()
	opts = append([]Option{WithClock(clock), WithSeed(42)}, opts...)
	reg := NewRegistry(out, testLogger(), opts...)
	t.Cleanup(reg.Close)
	return &harness{t: t, clock: clock, out: out, reg: reg}
}

// advance moves the mock clock forward by d, stopping at every timer on the
// way so each callback runs at its own instant.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for d > 0 {
		next, ok := h.clock.Peek()
		if !ok || next > d {
			h.clock.Advance(d).MustWait(ctx)
			return
		}
		h.clock.Advance(next).MustWait(ctx)
		d -= next
	}
}

// runUntil fires timers one at a time until cond holds.
func (h *harness) runUntil(cond func() bool) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 1000 && !cond(); i++ {
		if _, ok := h.clock.Peek(); !ok {
			break
		}
		_, w := h.clock.AdvanceNext()
		w.MustWait(ctx)
	}
	require.True(h.t, cond(), "condition not reached")
}

func (h *harness) state(roomID string) State {
	h.t.Helper()
	st, err := h.reg.State(roomID)
	require.NoError(h.t, err)
	return st
}

func (h *harness) phaseIs(roomID string, phase Phase) func() bool {
	return func() bool {
		st, err := h.reg.State(roomID)
		return err == nil && st.Phase == phase
	}
}

func (h *harness) gone(roomID string) func() bool {
	return func() bool {
		_, err := h.reg.State(roomID)
		return err != nil
	}
}

// room returns the live *Room for white-box checks.
func (h *harness) room(roomID string) *Room {
	h.t.Helper()
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	room, ok := h.reg.rooms[roomID]
	require.True(h.t, ok, "room %s not registered", roomID)
	return room
}
