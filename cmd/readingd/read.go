package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/randomtoy/readingd/internal/app"
	"github.com/randomtoy/readingd/internal/domain"
)

var errReadingFailed = errors.New("reading failed")

type pollFlags struct {
	maxAttempts int
	interval    time.Duration
}

func (f *pollFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "override the number of status reads before giving up")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "override the delay between status reads")
}

// options turns the flags into poll overrides and reports progress on w.
func (f *pollFlags) options(w io.Writer) []app.PollOption {
	opts := []app.PollOption{app.WithProgress(func(attempt int, status domain.JobStatus) {
		fmt.Fprintf(w, "attempt %d: %s\n", attempt, status)
	})}
	if f.maxAttempts > 0 {
		opts = append(opts, app.WithMaxAttempts(f.maxAttempts))
	}
	if f.interval > 0 {
		opts = append(opts, app.WithInterval(f.interval))
	}
	return opts
}

type readOptions struct {
	question  string
	cards     []string
	spread    string
	name      string
	birthDate string
	birthTime string
	numCards  int
	deck      string
	poll      pollFlags
}

type drawnOutput struct {
	Spread domain.SpreadType    `json:"spread"`
	Deck   string               `json:"deck"`
	Cards  []domain.DrawnCard   `json:"cards"`
	Result domain.ReadingResult `json:"result"`
}

func newReadCmd(wire wireFunc) *cobra.Command {
	opts := &readOptions{}
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Generate a reading for given cards, or draw them from a deck",
		Long:  "Generate a reading. Pass cards with --card id:name[:element]; without --card, -n cards are drawn from --deck.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := wire(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			profile := domain.Profile{Name: opts.name, BirthDate: opts.birthDate, BirthTime: opts.birthTime}
			pollOpts := opts.poll.options(cmd.ErrOrStderr())

			if len(opts.cards) == 0 {
				drawn, err := d.service.DrawAndRead(cmd.Context(), app.DrawRequest{
					Profile:    profile,
					Question:   opts.question,
					NumCards:   opts.numCards,
					DeckID:     opts.deck,
					SpreadType: opts.spread,
				}, pollOpts...)
				if err != nil {
					return err
				}
				out := drawnOutput{Spread: drawn.SpreadType, Deck: drawn.DeckID, Cards: drawn.Cards, Result: drawn.Result}
				return printResult(cmd.OutOrStdout(), out, drawn.Result)
			}

			cards, err := parseCards(opts.cards)
			if err != nil {
				return err
			}
			req, err := domain.BuildReadingRequest(profile, cards, opts.question, domain.SpreadType(opts.spread))
			if err != nil {
				return err
			}
			res := d.service.GenerateReading(cmd.Context(), req, pollOpts...)
			return printResult(cmd.OutOrStdout(), res, res)
		},
	}

	cmd.Flags().StringVar(&opts.question, "question", "", "question to ask")
	cmd.Flags().StringArrayVar(&opts.cards, "card", nil, "card as id:name[:element], repeatable")
	cmd.Flags().StringVar(&opts.spread, "spread", "", "spread type (single, generic, three_card, ...)")
	cmd.Flags().StringVar(&opts.name, "name", "", "querent name")
	cmd.Flags().StringVar(&opts.birthDate, "birth-date", "", "querent birth date")
	cmd.Flags().StringVar(&opts.birthTime, "birth-time", "", "querent birth time")
	cmd.Flags().IntVarP(&opts.numCards, "num-cards", "n", 3, "cards to draw when no --card is given")
	cmd.Flags().StringVar(&opts.deck, "deck", "", "deck to draw from")
	opts.poll.register(cmd)
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func newFollowUpCmd(wire wireFunc) *cobra.Command {
	var (
		thread  string
		message string
		poll    pollFlags
	)
	cmd := &cobra.Command{
		Use:   "follow-up",
		Short: "Ask a follow-up question on an existing reading thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := wire(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			conv := domain.ConversationHandle{ThreadID: thread}
			res := d.service.ContinueReading(cmd.Context(), conv, message, poll.options(cmd.ErrOrStderr())...)
			return printResult(cmd.OutOrStdout(), res, res)
		},
	}

	cmd.Flags().StringVar(&thread, "thread", "", "thread id returned by a previous reading")
	cmd.Flags().StringVar(&message, "message", "", "follow-up message")
	poll.register(cmd)
	_ = cmd.MarkFlagRequired("thread")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

// parseCards reads cards written as id:name[:element].
func parseCards(raw []string) ([]domain.Card, error) {
	cards := make([]domain.Card, 0, len(raw))
	for _, item := range raw {
		parts := strings.SplitN(item, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("invalid --card %q: want id:name[:element]", item)
		}
		c := domain.Card{ID: strings.TrimSpace(parts[0]), Name: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			c.Element = strings.ToLower(strings.TrimSpace(parts[2]))
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// printResult writes out as indented JSON and turns a failed result into a
// non-nil error so the process exits non-zero.
func printResult(w io.Writer, out any, res domain.ReadingResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", errReadingFailed, res.Code)
	}
	return nil
}
