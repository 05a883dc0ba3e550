package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

// ReadingService is the entry point of the reading pipeline. Its reading
// methods never return Go errors: every failure comes back as a
// ReadingResult with Success set to false.
type ReadingService struct {
	client  ports.ConversationClient
	adapter *ResultAdapter
	decks   ports.DeckStore
	rng     domain.RNG
	metrics ports.PipelineMetrics
	logger  *slog.Logger
}

func NewReadingService(
	client ports.ConversationClient,
	poller *StatusPoller,
	decks ports.DeckStore,
	rng domain.RNG,
	metrics ports.PipelineMetrics,
	logger *slog.Logger,
) *ReadingService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingService{
		client:  client,
		adapter: NewResultAdapter(poller),
		decks:   decks,
		rng:     rng,
		metrics: metrics,
		logger:  logger,
	}
}

// GenerateReading submits req and waits for the interpretation.
func (s *ReadingService) GenerateReading(ctx context.Context, req domain.ReadingRequest, opts ...PollOption) domain.ReadingResult {
	start := time.Now()
	log := s.logger.With("op", "generate", "spread", string(req.SpreadType()), "cards", len(req.Cards()))

	if req.Question() == "" {
		return s.done(ctx, log, start, domain.NewErrorResult(fmt.Errorf("%w: empty reading request", domain.ErrInvalidInput), nil, nil))
	}

	outcome, err := s.client.Start(ctx, req)
	if err != nil {
		s.metrics.Submitted(ports.ModeError)
		return s.done(ctx, log, start, domain.NewErrorResult(fmt.Errorf("submit reading: %w", err), nil, nil))
	}
	return s.done(ctx, log, start, s.resolve(ctx, outcome, opts))
}

// ContinueReading sends a follow-up message on an existing thread.
func (s *ReadingService) ContinueReading(ctx context.Context, conv domain.ConversationHandle, message string, opts ...PollOption) domain.ReadingResult {
	start := time.Now()
	log := s.logger.With("op", "continue")

	message = strings.TrimSpace(message)
	switch {
	case conv.ThreadID == "":
		return s.done(ctx, log, start, domain.NewErrorResult(fmt.Errorf("%w: thread id is required", domain.ErrInvalidInput), nil, nil))
	case message == "":
		return s.done(ctx, log, start, domain.NewErrorResult(fmt.Errorf("%w: message is required", domain.ErrInvalidInput), &conv, nil))
	}

	outcome, err := s.client.Continue(ctx, conv, message)
	if err != nil {
		s.metrics.Submitted(ports.ModeError)
		return s.done(ctx, log, start, domain.NewErrorResult(fmt.Errorf("continue reading: %w", err), &conv, nil))
	}
	return s.done(ctx, log, start, s.resolve(ctx, outcome, opts))
}

func (s *ReadingService) resolve(ctx context.Context, outcome domain.SubmissionOutcome, opts []PollOption) domain.ReadingResult {
	switch outcome.(type) {
	case domain.Immediate:
		s.metrics.Submitted(ports.ModeImmediate)
	case domain.Pending:
		s.metrics.Submitted(ports.ModePending)
	}
	return s.adapter.Resolve(ctx, outcome, opts...)
}

func (s *ReadingService) done(ctx context.Context, log *slog.Logger, start time.Time, res domain.ReadingResult) domain.ReadingResult {
	elapsed := time.Since(start)
	s.metrics.Resolved(res.Code, elapsed)

	attrs := []any{
		"success", res.Success,
		"thread_id", res.ThreadID(),
		"run_id", res.RunID(),
		"latency_ms", elapsed.Milliseconds(),
	}
	if res.Success {
		log.InfoContext(ctx, "reading resolved", attrs...)
	} else {
		log.WarnContext(ctx, "reading failed", append(attrs, "code", string(res.Code), "error", res.Error)...)
	}
	return res
}

// DrawRequest asks the service to draw the cards itself before generating.
type DrawRequest struct {
	Profile    domain.Profile
	Question   string
	NumCards   int
	DeckID     string
	SpreadType string
}

// DrawnReading is a reading together with the cards that were drawn for it.
type DrawnReading struct {
	SpreadType domain.SpreadType
	DeckID     string
	Cards      []domain.DrawnCard
	Result     domain.ReadingResult
	LatencyMS  int64
}

// DrawAndRead draws cards from a deck and generates a reading for them.
// Errors are returned only for problems before submission (unknown deck,
// bad card count, missing question); backend failures are in Result.
func (s *ReadingService) DrawAndRead(ctx context.Context, req DrawRequest, opts ...PollOption) (DrawnReading, error) {
	deck, err := s.decks.GetDeck(ctx, req.DeckID)
	if err != nil {
		return DrawnReading{}, fmt.Errorf("get deck: %w", err)
	}

	drawn, err := domain.DrawCards(deck, req.NumCards, s.rng)
	if err != nil {
		return DrawnReading{}, fmt.Errorf("draw cards: %w", err)
	}

	st := domain.SpreadFor(req.SpreadType, req.NumCards)
	rr, err := domain.BuildReadingRequest(req.Profile, requestCards(drawn), req.Question, st)
	if err != nil {
		return DrawnReading{}, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	res := s.GenerateReading(ctx, rr, opts...)

	return DrawnReading{
		SpreadType: st,
		DeckID:     deck.ID,
		Cards:      drawn,
		Result:     res,
		LatencyMS:  time.Since(start).Milliseconds(),
	}, nil
}

// requestCards flattens drawn cards for the generator. Reversed cards keep
// their id; the orientation travels in the display name.
func requestCards(drawn []domain.DrawnCard) []domain.Card {
	out := make([]domain.Card, len(drawn))
	for i, d := range drawn {
		c := d.Card
		if d.Orientation == domain.Reversed {
			c.Name += " (reversed)"
		}
		out[i] = c
	}
	return out
}
