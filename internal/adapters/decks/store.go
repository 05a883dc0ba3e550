package decks

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

//go:embed data/*.json
var deckFS embed.FS

// DefaultDeckID is the deck used when a request names none.
const DefaultDeckID = "major_arcana"

type deckSource struct {
	name string
	file string
}

var registry = map[string]deckSource{
	DefaultDeckID: {name: "Major Arcana", file: "data/major_arcana.json"},
}

// EmbeddedStore loads decks from embedded JSON files on first use.
type EmbeddedStore struct {
	once  sync.Once
	decks map[string]domain.Deck
	err   error
}

var _ ports.DeckStore = (*EmbeddedStore)(nil)

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	s.decks = make(map[string]domain.Deck, len(registry))
	for id, src := range registry {
		raw, err := deckFS.ReadFile(src.file)
		if err != nil {
			s.err = fmt.Errorf("read embedded deck %s: %w", id, err)
			return
		}
		var cards []domain.Card
		if err := json.Unmarshal(raw, &cards); err != nil {
			s.err = fmt.Errorf("parse embedded deck %s: %w", id, err)
			return
		}
		if err := validateCards(cards); err != nil {
			s.err = fmt.Errorf("embedded deck %s: %w", id, err)
			return
		}
		s.decks[id] = domain.Deck{ID: id, Name: src.name, Cards: cards}
	}
}

func validateCards(cards []domain.Card) error {
	seen := make(map[string]struct{}, len(cards))
	for i, c := range cards {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("card %d is missing id or name", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate card id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

func (s *EmbeddedStore) GetDeck(_ context.Context, deckID string) (domain.Deck, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return domain.Deck{}, s.err
	}
	if deckID == "" {
		deckID = DefaultDeckID
	}
	deck, ok := s.decks[deckID]
	if !ok {
		return domain.Deck{}, fmt.Errorf("%w: %s", domain.ErrDeckNotFound, deckID)
	}
	return deck, nil
}
