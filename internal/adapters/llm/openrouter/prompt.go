package openrouter

import (
	"fmt"
	"strings"

	"github.com/randomtoy/readingd/internal/domain"
)

const systemPrompt = `You are a tarot reader providing neutral, reflective interpretations.

Rules:
- Be maximally neutral and balanced.
- Never provide medical, legal, or financial advice.
- Never predict specific outcomes or disasters.
- Never command actions or diagnose conditions.
- Offer balanced possibilities and reflective questions.
- Answer follow-up questions in the context of the cards already drawn.

Respond with plain prose. No markdown headings, no JSON.`

func buildUserPrompt(req domain.ReadingRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Spread: %s\n", req.SpreadType())

	if p := req.Profile(); p != (domain.Profile{}) {
		b.WriteString("\nQuerent:\n")
		writeField(&b, "Name", p.Name)
		writeField(&b, "Birth date", p.BirthDate)
		writeField(&b, "Birth time", p.BirthTime)
	}

	b.WriteString("\nCards drawn:\n")
	for i, card := range req.Cards() {
		name := card.Name
		if name == "" {
			name = card.ID
		}
		fmt.Fprintf(&b, "  Position %d: %s", i+1, name)
		if card.Element != "" {
			fmt.Fprintf(&b, " [%s]", card.Element)
		}
		b.WriteString("\n")
		if len(card.Keywords) > 0 {
			fmt.Fprintf(&b, "    Keywords: %s\n", strings.Join(card.Keywords, ", "))
		}
		if card.Short != "" {
			fmt.Fprintf(&b, "    Meaning: %s\n", card.Short)
		}
	}

	fmt.Fprintf(&b, "\nThe querent asks: %q\n", req.Question())
	b.WriteString("\nProvide a cohesive interpretation.")
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "  %s: %s\n", label, value)
	}
}
