package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
)

func TestDefaultRulesAreValid(t *testing.T) {
	rules := DefaultRules()
	require.NoError(t, rules.Validate())
	assert.Equal(t, 5, rules.MaxPlayers)
	assert.Equal(t, 1000, rules.StartingChips)
	assert.Equal(t, 17, rules.DealerStandsOn)
	assert.Equal(t, 2*time.Second, rules.CloseDelay)
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
		want   string
	}{
		{"no seats", func(r *Rules) { r.MaxPlayers = 0 }, "max players"},
		{"no chips", func(r *Rules) { r.StartingChips = 0 }, "starting chips"},
		{"no rounds", func(r *Rules) { r.MaxRounds = 0 }, "max rounds"},
		{"no bet window", func(r *Rules) { r.BetSeconds = 0 }, "bet window"},
		{"no action window", func(r *Rules) { r.ActionSeconds = -1 }, "action window"},
		{"no dealer tick", func(r *Rules) { r.DealerTick = 0 }, "dealer tick"},
		{"dealer threshold", func(r *Rules) { r.DealerStandsOn = 22 }, "dealer stands on"},
		{"no leaderboard", func(r *Rules) { r.LeaderboardSize = 0 }, "leaderboard size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.mutate(&rules)
			err := rules.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name           string
		player, dealer int
		want           Outcome
		delta          int
	}{
		{"dealer bust", 18, 24, OutcomeWin, 100},
		{"higher score", 20, 18, OutcomeWin, 100},
		{"lower score", 18, 20, OutcomeLose, -100},
		{"equal scores", 19, 19, OutcomePush, 0},
		{"player bust", 22, 18, OutcomeBust, -100},
		{"both bust", 23, 25, OutcomeBust, -100},
		{"blackjack push", 21, 21, OutcomePush, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Settle(tt.player, tt.dealer)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.delta, got.Delta(100))
		})
	}
}

func TestPlayerSettleEliminatesBelowZero(t *testing.T) {
	p := newPlayer("c1", "Alice", 100, 0)
	p.Bet = 100
	p.settle(OutcomeLose)
	assert.Equal(t, 0, p.Chips)
	assert.False(t, p.Eliminated, "zero chips is still in the game")

	p.Bet = 1
	p.settle(OutcomeBust)
	assert.Equal(t, -1, p.Chips)
	assert.True(t, p.Eliminated)
	assert.Equal(t, StatusEliminated, p.Status)

	p.resetRound()
	assert.Equal(t, StatusEliminated, p.Status)
	assert.Zero(t, p.Bet)
	assert.Equal(t, OutcomeNone, p.LastResult)
}

func TestPlayerScoreFollowsHand(t *testing.T) {
	p := newPlayer("c1", "Alice", 1000, 0)
	for _, c := range deck.MustParseCards("AhAs9d") {
		p.take(c)
	}
	assert.Equal(t, 21, p.Score)
	assert.Equal(t, deck.Score(p.Hand), p.Score)

	p.resetRound()
	assert.Empty(t, p.Hand)
	assert.Zero(t, p.Score)
	assert.Equal(t, StatusBetting, p.Status)
}

func TestDealerViewRedaction(t *testing.T) {
	hand := deck.MustParseCards("AsKd")

	hidden := dealerView(PhaseAction, hand)
	assert.Equal(t, DealerView{Hand: deck.MustParseCards("Kd"), Score: 10, Hidden: 1}, hidden)

	for _, phase := range []Phase{PhaseWaiting, PhaseBetting, PhaseDealer, PhaseResult} {
		assert.Equal(t, DealerView{Hand: hand, Score: 21, Soft: true}, dealerView(phase, hand), "phase %s", phase)
	}
	assert.Equal(t, DealerView{Hand: []deck.Card{}}, dealerView(PhaseAction, nil))

	// An Ace showing is soft; the hole card does not count.
	showing := dealerView(PhaseAction, deck.MustParseCards("9cAh"))
	assert.Equal(t, DealerView{Hand: deck.MustParseCards("Ah"), Score: 11, Soft: true, Hidden: 1}, showing)

	hard := dealerView(PhaseDealer, deck.MustParseCards("9cAh5d"))
	assert.Equal(t, 15, hard.Score)
	assert.False(t, hard.Soft)
}

func TestProjectionMarksSoftHands(t *testing.T) {
	r := &Room{
		id:    "t1",
		rules: DefaultRules(),
		phase: PhaseAction,
		players: map[string]*Player{
			"c1": newPlayer("c1", "Alice", 1000, 0),
			"c2": newPlayer("c2", "Bob", 1000, 1),
		},
	}
	for _, c := range deck.MustParseCards("As6d") {
		r.players["c1"].take(c)
	}
	for _, c := range deck.MustParseCards("AsKd5c") {
		r.players["c2"].take(c)
	}

	st := r.project()
	assert.Equal(t, 17, st.Players["c1"].Score)
	assert.True(t, st.Players["c1"].Soft)
	assert.Equal(t, 16, st.Players["c2"].Score)
	assert.False(t, st.Players["c2"].Soft)
}
