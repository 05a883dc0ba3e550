package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

const (
	DefaultMaxAttempts  = 60
	DefaultPollInterval = time.Second
)

// PollConfig bounds how long a run is polled. MaxAttempts*Interval is the
// effective ceiling; there is no separate wall-clock deadline.
type PollConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{MaxAttempts: DefaultMaxAttempts, Interval: DefaultPollInterval}
}

func (c PollConfig) normalized() PollConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	return c
}

// ProgressFunc is called after every successful status read, never after a
// failed one.
type ProgressFunc func(attempt int, status domain.JobStatus)

// PollOption overrides the poller's configuration for a single call.
type PollOption func(*pollSettings)

type pollSettings struct {
	PollConfig
	progress ProgressFunc
}

func WithMaxAttempts(n int) PollOption {
	return func(s *pollSettings) { s.MaxAttempts = n }
}

func WithInterval(d time.Duration) PollOption {
	return func(s *pollSettings) { s.Interval = d }
}

func WithProgress(fn ProgressFunc) PollOption {
	return func(s *pollSettings) { s.progress = fn }
}

// StatusPoller drives a run to a terminal state with sequential status reads.
type StatusPoller struct {
	reader  ports.StatusReader
	cfg     PollConfig
	metrics ports.PipelineMetrics
	logger  *slog.Logger
}

func NewStatusPoller(reader ports.StatusReader, cfg PollConfig, metrics ports.PipelineMetrics, logger *slog.Logger) *StatusPoller {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusPoller{
		reader:  reader,
		cfg:     cfg.normalized(),
		metrics: metrics,
		logger:  logger,
	}
}

// Poll reads the status of job until it reaches a terminal state or the
// attempt budget runs out. A failed read is not fatal: it uses up one attempt
// and polling resumes after the next interval. The only error returned is the
// context's, when ctx is cancelled.
func (p *StatusPoller) Poll(ctx context.Context, job domain.JobHandle, opts ...PollOption) (domain.PollOutcome, error) {
	s := pollSettings{PollConfig: p.cfg}
	for _, opt := range opts {
		opt(&s)
	}
	s.PollConfig = s.PollConfig.normalized()

	log := p.logger.With("thread_id", job.ThreadID, "run_id", job.RunID)

	var lastErr error
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap, err := p.reader.Status(ctx, job)
		switch {
		case err == nil:
			p.metrics.PollAttempt(snap.Status.String())
			log.DebugContext(ctx, "run status", "attempt", attempt, "status", snap.Status.String())
			if s.progress != nil {
				s.progress(attempt, snap.Status)
			}
			if outcome, done := terminalOutcome(snap); done {
				return outcome, nil
			}
		case errors.Is(err, domain.ErrUnknownConversation):
			p.metrics.PollAttempt("error")
			return domain.Failed{Reason: err.Error(), Err: domain.ErrUnknownConversation}, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			p.metrics.PollAttempt("error")
			log.WarnContext(ctx, "status read failed, will retry", "attempt", attempt, "error", err)
			lastErr = err
		}

		if attempt < s.MaxAttempts {
			if err := wait(ctx, s.Interval); err != nil {
				return nil, err
			}
		}
	}

	log.WarnContext(ctx, "polling attempts exhausted", "attempts", s.MaxAttempts)
	return domain.TimedOut{Attempts: s.MaxAttempts, LastErr: lastErr}, nil
}

// terminalOutcome interprets one status read. done is false while the run is
// still queued or in progress.
func terminalOutcome(snap domain.JobSnapshot) (outcome domain.PollOutcome, done bool) {
	switch snap.Status {
	case domain.JobQueued, domain.JobInProgress:
		return nil, false
	case domain.JobCompleted:
		if strings.TrimSpace(snap.Content) == "" {
			return domain.Failed{Reason: "AI run failed: empty completion", Err: domain.ErrRunFailed}, true
		}
		return domain.Completed{Text: snap.Content}, true
	case domain.JobFailed:
		return domain.Failed{Reason: withDetail("AI run failed", snap.Error), Err: domain.ErrRunFailed}, true
	case domain.JobRequiresAction:
		return domain.Failed{Reason: withDetail("AI run requires action, which is not supported", snap.Error), Err: domain.ErrRequiresAction}, true
	case domain.JobCancelling:
		return domain.Failed{Reason: withDetail("AI run was cancelled", snap.Error), Err: domain.ErrRunFailed}, true
	default:
		return nil, false
	}
}

func withDetail(reason, detail string) string {
	if detail == "" {
		return reason
	}
	return reason + ": " + detail
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
