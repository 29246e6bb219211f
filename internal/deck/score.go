package deck

// Blackjack is the best possible hand total.
const Blackjack = 21

// Score returns the blackjack total of a hand. Aces start at 11 and are
// demoted to 1, one at a time, while the total is over 21.
func Score(hand []Card) int {
	total, _ := score(hand)
	return total
}

// IsSoft reports whether the hand total still counts an Ace as 11.
func IsSoft(hand []Card) bool {
	_, soft := score(hand)
	return soft > 0
}

func score(hand []Card) (total, softAces int) {
	for _, c := range hand {
		total += c.Rank.Points()
		if c.IsAce() {
			softAces++
		}
	}
	for total > Blackjack && softAces > 0 {
		total -= 10
		softAces--
	}
	return total, softAces
}
