package app

import (
	"context"
	"fmt"

	"github.com/randomtoy/readingd/internal/domain"
)

const pollTimeoutMessage = "Polling timeout: AI response took too long"

// ResultAdapter turns either submission shape into a ReadingResult, polling
// when the backend handed back a run.
type ResultAdapter struct {
	poller *StatusPoller
}

func NewResultAdapter(poller *StatusPoller) *ResultAdapter {
	return &ResultAdapter{poller: poller}
}

func (a *ResultAdapter) Resolve(ctx context.Context, outcome domain.SubmissionOutcome, opts ...PollOption) domain.ReadingResult {
	switch o := outcome.(type) {
	case domain.Immediate:
		return domain.NewSuccessResult(o.Text, o.Conversation, nil)
	case domain.Pending:
		return a.resolvePending(ctx, o, opts)
	default:
		return domain.NewFailureResult(domain.CodeInternal, fmt.Sprintf("unsupported submission outcome %T", outcome), nil, nil)
	}
}

func (a *ResultAdapter) resolvePending(ctx context.Context, p domain.Pending, opts []PollOption) domain.ReadingResult {
	conv, job := p.Conversation, p.Job

	polled, err := a.poller.Poll(ctx, job, opts...)
	if err != nil {
		return domain.NewFailureResult(domain.CodeCancelled, "Polling stopped: "+err.Error(), &conv, &job)
	}

	switch r := polled.(type) {
	case domain.Completed:
		return domain.NewSuccessResult(r.Text, &conv, &job)
	case domain.Failed:
		return domain.NewFailureResult(domain.CodeFor(r.Err), r.Reason, &conv, &job)
	case domain.TimedOut:
		return domain.NewFailureResult(domain.CodePollTimeout, pollTimeoutMessage, &conv, &job)
	default:
		return domain.NewFailureResult(domain.CodeInternal, fmt.Sprintf("unsupported poll outcome %T", polled), &conv, &job)
	}
}
