package domain

import (
	"fmt"
	"slices"
	"strings"
)

// ReadingRequest is a validated generation request. Build it with
// BuildReadingRequest; the zero value is not a valid request.
type ReadingRequest struct {
	profile    Profile
	question   string
	cards      []Card
	spreadType SpreadType
}

// BuildReadingRequest validates and assembles a ReadingRequest. The question
// and at least one card are required; everything else is optional.
func BuildReadingRequest(profile Profile, cards []Card, question string, spreadType SpreadType) (ReadingRequest, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ReadingRequest{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if len(cards) == 0 {
		return ReadingRequest{}, fmt.Errorf("%w: at least one card is required", ErrInvalidInput)
	}
	if spreadType == "" {
		spreadType = SpreadGeneric
	}

	return ReadingRequest{
		profile:    profile,
		question:   question,
		cards:      cloneCards(cards),
		spreadType: spreadType,
	}, nil
}

func (r ReadingRequest) Profile() Profile       { return r.profile }
func (r ReadingRequest) Question() string       { return r.question }
func (r ReadingRequest) SpreadType() SpreadType { return r.spreadType }

// Cards returns a copy of the selected cards in draw order.
func (r ReadingRequest) Cards() []Card { return cloneCards(r.cards) }

func cloneCards(in []Card) []Card {
	out := make([]Card, len(in))
	for i, c := range in {
		c.Keywords = slices.Clone(c.Keywords)
		out[i] = c
	}
	return out
}
