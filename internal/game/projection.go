package game

import (
	"github.com/lox/blackjack/internal/deck"
)

// State is the client-safe view of a room, broadcast after every change.
type State struct {
	RoomID    string                `json:"roomId"`
	Phase     Phase                 `json:"phase"`
	Round     int                   `json:"round"`
	MaxRounds int                   `json:"maxRounds"`
	Players   map[string]PlayerView `json:"players"`
	Dealer    DealerView            `json:"dealer"`
}

// PlayerView is a copy of a Player safe to hand to the transport.
type PlayerView struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Chips      int         `json:"chips"`
	Bet        int         `json:"bet"`
	Hand       []deck.Card `json:"hand"`
	Score      int         `json:"score"`
	Soft       bool        `json:"soft"`
	Status     Status      `json:"status"`
	Eliminated bool        `json:"eliminated"`
	LastResult Outcome     `json:"lastResult"`
}

// DealerView shows the dealer's visible cards. Hidden counts face-down
// cards, which no other field accounts for.
type DealerView struct {
	Hand   []deck.Card `json:"hand"`
	Score  int         `json:"score"`
	Soft   bool        `json:"soft"`
	Hidden int         `json:"hidden"`
}

// project builds the State for the room. Callers hold r.mu.
func (r *Room) project() State {
	players := make(map[string]PlayerView, len(r.players))
	for id, p := range r.players {
		players[id] = PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Chips:      p.Chips,
			Bet:        p.Bet,
			Hand:       cloneCards(p.Hand),
			Score:      p.Score,
			Soft:       deck.IsSoft(p.Hand),
			Status:     p.Status,
			Eliminated: p.Eliminated,
			LastResult: p.LastResult,
		}
	}
	return State{
		RoomID:    r.id,
		Phase:     r.phase,
		Round:     r.round,
		MaxRounds: r.rules.MaxRounds,
		Players:   players,
		Dealer:    dealerView(r.phase, r.dealer.Hand),
	}
}

// dealerView hides the hole card while players are still deciding.
func dealerView(phase Phase, hand []deck.Card) DealerView {
	hidden := 0
	if phase == PhaseAction && len(hand) > 0 {
		hand, hidden = hand[1:], 1
	}
	return DealerView{
		Hand:   cloneCards(hand),
		Score:  deck.Score(hand),
		Soft:   deck.IsSoft(hand),
		Hidden: hidden,
	}
}

func cloneCards(cards []deck.Card) []deck.Card {
	out := make([]deck.Card, len(cards))
	copy(out, cards)
	return out
}
