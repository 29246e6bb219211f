package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndJoin(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.reg.Create("c1", "t1", "  Alice  "))
	require.NoError(t, h.reg.Join("c2", "t1", "Bob"))

	st := h.state("t1")
	assert.Len(t, st.Players, 2)
	assert.Equal(t, "Alice", st.Players["c1"].Name, "names are trimmed")

	joined := h.out.direct("c2", EventRoomJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, RoomJoined{RoomID: "t1", PlayerID: "c2"}, joined[0])
	assert.True(t, h.out.isMember("t1", "c1"))

	roomID, ok := h.reg.RoomOf("c2")
	assert.True(t, ok)
	assert.Equal(t, "t1", roomID)
}

func TestRegistryErrors(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.Create("c1", "t1", "Alice"))

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"duplicate room", func() error { return h.reg.Create("c2", "t1", "Bob") }, ErrDuplicateRoom},
		{"unknown room", func() error { return h.reg.Join("c2", "nope", "Bob") }, ErrRoomNotFound},
		{"already in a room", func() error { return h.reg.Join("c1", "t1", "Alice") }, ErrAlreadyInRoom},
		{"create while seated", func() error { return h.reg.Create("c1", "t2", "Alice") }, ErrAlreadyInRoom},
		{"empty name", func() error { return h.reg.Join("c2", "t1", "   ") }, ErrInvalidName},
		{"long name", func() error { return h.reg.Join("c2", "t1", strings.Repeat("é", 21)) }, ErrInvalidName},
		{"empty room id", func() error { return h.reg.Create("c2", "", "Bob") }, ErrInvalidRoomID},
		{"bad room id", func() error { return h.reg.Create("c2", "a room", "Bob") }, ErrInvalidRoomID},
		{"long room id", func() error { return h.reg.Create("c2", strings.Repeat("x", 33), "Bob") }, ErrInvalidRoomID},
		{"start outside a room", func() error { return h.reg.Start("c2") }, ErrNotInRoom},
		{"stand outside a room", func() error { return h.reg.Stand("c2", "t1") }, ErrNotInRoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}

	_, ok := h.reg.RoomOf("c2")
	assert.False(t, ok, "failed joins leave no membership behind")
	assert.Len(t, h.reg.Rooms(), 1)
}

func TestRoomFull(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.Create("c0", "t1", "P0"))
	for i := 1; i < 5; i++ {
		require.NoError(t, h.reg.Join(fmt.Sprintf("c%d", i), "t1", fmt.Sprintf("P%d", i)))
	}

	err := h.reg.Join("c5", "t1", "P5")
	require.ErrorIs(t, err, ErrRoomFull)
	_, ok := h.reg.RoomOf("c5")
	assert.False(t, ok)

	h.reg.Leave("c3")
	require.NoError(t, h.reg.Join("c5", "t1", "P5"))
}

func TestLastLeaveDestroysRoom(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.Create("c1", "t1", "Alice"))
	require.NoError(t, h.reg.Join("c2", "t1", "Bob"))
	require.NoError(t, h.reg.Start("c1"))
	room := h.room("t1")

	h.reg.Leave("c1")
	assert.Len(t, h.reg.Rooms(), 1)
	h.reg.Leave("c2")

	assert.Empty(t, h.reg.Rooms())
	_, err := h.reg.State("t1")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	room.mu.Lock()
	assert.True(t, room.closed)
	assert.Empty(t, room.timers)
	room.mu.Unlock()

	_, ok := h.clock.Peek()
	assert.False(t, ok, "no timers left behind")

	// The id is free again, and the new room starts from scratch.
	require.NoError(t, h.reg.Create("c3", "t1", "Carol"))
	st := h.state("t1")
	assert.Equal(t, PhaseWaiting, st.Phase)
	assert.Len(t, st.Players, 1)
}

func TestLeaveUnknownConnectionIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.reg.Leave("ghost")
	assert.Empty(t, h.reg.Rooms())
}

func TestRoomsListing(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.Create("c1", "zeta", "Alice"))
	require.NoError(t, h.reg.Create("c2", "alpha", "Bob"))
	require.NoError(t, h.reg.Join("c3", "alpha", "Carol"))
	require.NoError(t, h.reg.Start("c2"))

	assert.Equal(t, []RoomSummary{
		{ID: "alpha", Phase: PhaseBetting, Round: 1, MaxRounds: 5, Players: 2, MaxPlayers: 5},
		{ID: "zeta", Phase: PhaseWaiting, Round: 0, MaxRounds: 5, Players: 1, MaxPlayers: 5},
	}, h.reg.Rooms())
}

func TestRoomsAreIsolated(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.Create("c1", "t1", "Alice"))
	require.NoError(t, h.reg.Create("c2", "t2", "Bob"))
	require.NoError(t, h.reg.Start("c1"))
	require.NoError(t, h.reg.PlaceBet("c1", "t1", 100))

	assert.Equal(t, PhaseAction, h.state("t1").Phase)
	assert.Equal(t, PhaseWaiting, h.state("t2").Phase)
	assert.Empty(t, h.out.broadcasts("t2", EventBetCountdown))
	assert.ErrorIs(t, h.reg.PlaceBet("c2", "t1", 100), ErrNotInRoom)
}

type fakeArchive struct {
	mu      sync.Mutex
	records []GameRecord
}

func (f *fakeArchive) Record(_ context.Context, rec GameRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func TestFinishedGameIsRecorded(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 1
	archive := &fakeArchive{}
	h := newHarness(t, WithRules(rules), WithRecorder(archive), WithDeckSource(stackedDecks(stack("Th8hKs4sQd"))))
	require.NoError(t, h.reg.Create("c1", "t1", "Alice"))
	require.NoError(t, h.reg.Start("c1"))
	require.NoError(t, h.reg.PlaceBet("c1", "t1", 100))
	require.NoError(t, h.reg.Stand("c1", "t1"))

	h.runUntil(h.gone("t1"))
	h.reg.Close()

	archive.mu.Lock()
	defer archive.mu.Unlock()
	require.Len(t, archive.records, 1)
	rec := archive.records[0]
	assert.Equal(t, "t1", rec.RoomID)
	assert.Equal(t, 1, rec.Rounds)
	assert.Equal(t, []Standing{{Rank: 1, PlayerID: "c1", Name: "Alice", Chips: 1100}}, rec.Standings)
	assert.True(t, rec.FinishedAt.After(rec.StartedAt))
	assert.Less(t, rec.FinishedAt.Sub(rec.StartedAt), time.Minute)
}

func TestCloseStopsEveryRoom(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.Create("c1", "t1", "Alice"))
	require.NoError(t, h.reg.Start("c1"))
	room := h.room("t1")

	h.reg.Close()

	assert.Empty(t, h.reg.Rooms())
	room.mu.Lock()
	assert.True(t, room.closed)
	room.mu.Unlock()
	_, ok := h.clock.Peek()
	assert.False(t, ok)
	assert.ErrorIs(t, h.reg.PlaceBet("c1", "t1", 10), ErrNotInRoom)
}

func TestFailedCreateReleasesRoomID(t *testing.T) {
	rules := DefaultRules()
	rules.MaxPlayers = 0
	h := newHarness(t, WithRules(rules))

	err := h.reg.Create("c1", "t1", "Alice")
	require.ErrorIs(t, err, ErrRoomFull)

	assert.Empty(t, h.reg.Rooms())
	_, ok := h.reg.RoomOf("c1")
	assert.False(t, ok)
	_, err = h.reg.State("t1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
