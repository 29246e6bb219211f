package game

import (
	"github.com/lox/blackjack/internal/deck"
)

// Status is a player's position in the current round.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusBetting    Status = "betting"
	StatusBetted     Status = "betted"
	StatusPlaying    Status = "playing"
	StatusStand      Status = "stand"
	StatusBust       Status = "bust"
	StatusEliminated Status = "eliminated"
)

// Outcome is the result of one settled hand.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeBust Outcome = "bust"
	OutcomePush Outcome = "push"
)

// Settle compares a player's total against the dealer's. A player bust
// loses even when the dealer also busts.
func Settle(player, dealer int) Outcome {
	switch {
	case player > deck.Blackjack:
		return OutcomeBust
	case dealer > deck.Blackjack, player > dealer:
		return OutcomeWin
	case player < dealer:
		return OutcomeLose
	default:
		return OutcomePush
	}
}

// Delta returns the chip change for a hand settled with this outcome.
func (o Outcome) Delta(bet int) int {
	switch o {
	case OutcomeWin:
		return bet
	case OutcomeLose, OutcomeBust:
		return -bet
	default:
		return 0
	}
}

// Player is a seat in a room, keyed by the connection that owns it.
type Player struct {
	ID         string
	Name       string
	Chips      int
	Bet        int
	Hand       []deck.Card
	Score      int
	Status     Status
	Eliminated bool
	LastResult Outcome

	seat int // join order, used for dealing
}

func newPlayer(id, name string, chips, seat int) *Player {
	return &Player{
		ID:     id,
		Name:   name,
		Chips:  chips,
		Status: StatusWaiting,
		seat:   seat,
	}
}

// take adds a card to the hand and rescores it.
func (p *Player) take(c deck.Card) {
	p.Hand = append(p.Hand, c)
	p.Score = deck.Score(p.Hand)
}

// resetRound clears everything tied to the previous round and puts the
// player back into betting, or leaves them marked eliminated.
func (p *Player) resetRound() {
	p.Bet = 0
	p.Hand = nil
	p.Score = 0
	p.LastResult = OutcomeNone
	if p.Eliminated {
		p.Status = StatusEliminated
		return
	}
	p.Status = StatusBetting
}

// settle applies the outcome of a hand and eliminates the player once their
// chips drop below zero.
func (p *Player) settle(o Outcome) {
	p.Chips += o.Delta(p.Bet)
	p.LastResult = o
	if p.Chips < 0 {
		p.Eliminated = true
		p.Status = StatusEliminated
	}
}

// Dealer is the house hand, reset every round.
type Dealer struct {
	Hand  []deck.Card
	Score int
}

func (d *Dealer) take(c deck.Card) {
	d.Hand = append(d.Hand, c)
	d.Score = deck.Score(d.Hand)
}

func (d *Dealer) reset() {
	d.Hand = nil
	d.Score = 0
}
