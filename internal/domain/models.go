package domain

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// Orientation represents the orientation of a drawn tarot card.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// Element tags carried by cards.
const (
	ElementFire  = "fire"
	ElementWater = "water"
	ElementAir   = "air"
	ElementEarth = "earth"
)

// Card is a symbolic card. ID, Name and Element are what the generator
// receives; Keywords and Short are deck metadata.
type Card struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Element  string   `json:"element,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Short    string   `json:"short,omitempty"`
}

// DrawnCard is a card that has been drawn as part of a spread.
type DrawnCard struct {
	Card
	Position    int         `json:"position"`
	Orientation Orientation `json:"orientation"`
}

// Deck is a collection of tarot cards.
type Deck struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

// SpreadType identifies the layout the cards were drawn into.
type SpreadType string

const (
	SpreadSingle    SpreadType = "single"
	SpreadGeneric   SpreadType = "generic"
	SpreadThreeCard SpreadType = "three_card"
)

// Profile describes the querent. Every field is optional.
type Profile struct {
	Name      string `json:"name,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
	BirthTime string `json:"birthTime,omitempty"`
}
