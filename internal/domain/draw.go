package domain

// MaxDrawn is the largest number of cards a single draw may return.
const MaxDrawn = 10

// DrawCards picks n unique cards from deck using rng. Positions are 1-based
// and each card is independently upright or reversed.
func DrawCards(deck Deck, n int, rng RNG) ([]DrawnCard, error) {
	if n < 1 || n > MaxDrawn {
		return nil, ErrInvalidN
	}
	if n > len(deck.Cards) {
		return nil, ErrNExceedsDeck
	}

	// Partial Fisher-Yates over an index permutation; the deck is left untouched.
	order := make([]int, len(deck.Cards))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	drawn := make([]DrawnCard, 0, n)
	for pos, idx := range order[:n] {
		o := Upright
		if rng.Intn(2) == 1 {
			o = Reversed
		}
		drawn = append(drawn, DrawnCard{
			Card:        deck.Cards[idx],
			Position:    pos + 1,
			Orientation: o,
		})
	}
	return drawn, nil
}

// SpreadFor picks the layout name for a draw of n cards when the caller
// did not ask for a specific one.
func SpreadFor(raw string, n int) SpreadType {
	switch raw {
	case "", string(SpreadGeneric):
		switch n {
		case 1:
			return SpreadSingle
		case 3:
			return SpreadThreeCard
		}
		return SpreadGeneric
	default:
		return SpreadType(raw)
	}
}
