package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned by Draw when no cards remain.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck represents a deck of playing cards. Cards are dealt from the end.
type Deck struct {
	cards []Card
}

// Standard returns the 52 cards in construction order (suit by suit, A..K).
func Standard() []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// NewShuffled creates a full 52-card deck shuffled with rng.
func NewShuffled(rng *rand.Rand) *Deck {
	d := &Deck{cards: Standard()}
	d.Shuffle(rng)
	return d
}

// Stacked creates a deck that deals the given cards in order: the first
// argument is the first card drawn.
func Stacked(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	for i, c := range cards {
		d.cards[len(cards)-1-i] = c
	}
	return d
}

// Shuffle randomizes the order of cards in the deck (Fisher–Yates)
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the last card of the deck
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckExhausted
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards, last element dealt first.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
