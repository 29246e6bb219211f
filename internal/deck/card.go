package deck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// Suits lists every suit in deck construction order
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// String returns the lower-case suit name used on the wire
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	case Clubs:
		return "clubs"
	case Spades:
		return "spades"
	default:
		return "?"
	}
}

// Symbol returns the single glyph for the suit (e.g. "♥")
func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// Rank represents a card rank
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Ranks lists every rank in deck construction order
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// String returns the rank label used on the wire ("A", "2".."10", "J", "Q", "K")
func (r Rank) String() string {
	switch {
	case r == Ace:
		return "A"
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	default:
		return "?"
	}
}

// Points returns the blackjack value of the rank with an Ace counted high (11).
func (r Rank) Points() int {
	switch {
	case r == Ace:
		return 11
	case Card{Rank: r}.IsFaceCard():
		return 10
	default:
		return int(r)
	}
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the short form of a card (e.g., "A♠", "10♥")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsFaceCard returns true if the card is a face card (J, Q, K)
func (c Card) IsFaceCard() bool {
	return c.Rank >= Jack && c.Rank <= King
}

type cardJSON struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// MarshalJSON encodes the card as {"suit":"hearts","rank":"A"}.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Suit: c.Suit.String(), Rank: c.Rank.String()})
}

// UnmarshalJSON decodes the {"suit","rank"} form produced by MarshalJSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	suit, ok := parseSuitName(raw.Suit)
	if !ok {
		return fmt.Errorf("invalid suit %q", raw.Suit)
	}
	rank, ok := parseRank(raw.Rank)
	if !ok {
		return fmt.Errorf("invalid rank %q", raw.Rank)
	}
	*c = Card{Suit: suit, Rank: rank}
	return nil
}

func parseSuitName(s string) (Suit, bool) {
	for _, suit := range Suits {
		if suit.String() == strings.ToLower(s) {
			return suit, true
		}
	}
	return 0, false
}

func parseSuitLetter(b byte) (Suit, bool) {
	switch b {
	case 'h', 'H':
		return Hearts, true
	case 'd', 'D':
		return Diamonds, true
	case 'c', 'C':
		return Clubs, true
	case 's', 'S':
		return Spades, true
	}
	return 0, false
}

func parseRank(s string) (Rank, bool) {
	switch strings.ToUpper(s) {
	case "A":
		return Ace, true
	case "T", "10":
		return Ten, true
	case "J":
		return Jack, true
	case "Q":
		return Queen, true
	case "K":
		return King, true
	}
	if len(s) == 1 && s[0] >= '2' && s[0] <= '9' {
		return Rank(s[0] - '0'), true
	}
	return 0, false
}

// ParseCards parses compact notation like "AhKs10d" or "AhKsTd" into cards.
// Ten may be written as "T" or "10".
func ParseCards(s string) ([]Card, error) {
	cards := []Card{}
	for i := 0; i < len(s); {
		width := 2
		if strings.HasPrefix(s[i:], "10") {
			width = 3
		}
		if i+width > len(s) {
			return nil, fmt.Errorf("incomplete card at position %d in %q", i, s)
		}
		rank, ok := parseRank(s[i : i+width-1])
		if !ok {
			return nil, fmt.Errorf("invalid rank %q at position %d", s[i:i+width-1], i)
		}
		suit, ok := parseSuitLetter(s[i+width-1])
		if !ok {
			return nil, fmt.Errorf("invalid suit %q at position %d", s[i+width-1], i+width-1)
		}
		cards = append(cards, NewCard(suit, rank))
		i += width
	}
	return cards, nil
}

// MustParseCards is ParseCards for fixed inputs; it panics on error.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}
