package game

import (
	"fmt"
	"time"
)

// Rules holds the tunable constants of a game. Every room copies the
// registry's Rules at creation.
type Rules struct {
	MaxPlayers    int
	StartingChips int
	MaxRounds     int

	// Countdown windows, broadcast once per second.
	BetSeconds       int
	ActionSeconds    int
	NextRoundSeconds int

	// DeadlineGrace is added to the bet and action windows before the
	// hard deadline fires.
	DeadlineGrace time.Duration
	// RevealDelay separates a timed-out action phase from the dealer phase.
	RevealDelay time.Duration
	// DealerTick paces dealer draws.
	DealerTick     time.Duration
	DealerStandsOn int

	FinalDelay      time.Duration
	CloseDelay      time.Duration
	LeaderboardSize int
}

// DefaultRules returns the standard five round game for up to five players.
func DefaultRules() Rules {
	return Rules{
		MaxPlayers:       5,
		StartingChips:    1000,
		MaxRounds:        5,
		BetSeconds:       15,
		ActionSeconds:    20,
		NextRoundSeconds: 5,
		DeadlineGrace:    time.Second,
		RevealDelay:      time.Second,
		DealerTick:       time.Second,
		DealerStandsOn:   17,
		FinalDelay:       3 * time.Second,
		CloseDelay:       2 * time.Second,
		LeaderboardSize:  3,
	}
}

// Validate checks that the rules describe a playable game.
func (r Rules) Validate() error {
	if r.MaxPlayers < 1 || r.MaxPlayers > 7 {
		return fmt.Errorf("max players must be between 1 and 7, got %d", r.MaxPlayers)
	}
	if r.StartingChips <= 0 {
		return fmt.Errorf("starting chips must be positive, got %d", r.StartingChips)
	}
	if r.MaxRounds < 1 {
		return fmt.Errorf("max rounds must be at least 1, got %d", r.MaxRounds)
	}
	for name, secs := range map[string]int{
		"bet":        r.BetSeconds,
		"action":     r.ActionSeconds,
		"next round": r.NextRoundSeconds,
	} {
		if secs < 1 {
			return fmt.Errorf("%s window must be at least 1 second, got %d", name, secs)
		}
	}
	for name, d := range map[string]time.Duration{
		"deadline grace": r.DeadlineGrace,
		"reveal delay":   r.RevealDelay,
		"dealer tick":    r.DealerTick,
		"final delay":    r.FinalDelay,
		"close delay":    r.CloseDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if r.DealerStandsOn < 2 || r.DealerStandsOn > 21 {
		return fmt.Errorf("dealer stands on must be between 2 and 21, got %d", r.DealerStandsOn)
	}
	if r.LeaderboardSize < 1 {
		return fmt.Errorf("leaderboard size must be at least 1, got %d", r.LeaderboardSize)
	}
	return nil
}
