package ports

import (
	"time"

	"github.com/randomtoy/readingd/internal/domain"
)

// Submission modes reported to PipelineMetrics.
const (
	ModeImmediate = "immediate"
	ModePending   = "pending"
	ModeError     = "error"
)

// PipelineMetrics receives pipeline events. Implementations must be safe for
// concurrent use.
type PipelineMetrics interface {
	Submitted(mode string)
	PollAttempt(status string)
	Resolved(code domain.ErrorCode, elapsed time.Duration)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) Submitted(string)                         {}
func (NopMetrics) PollAttempt(string)                       {}
func (NopMetrics) Resolved(domain.ErrorCode, time.Duration) {}
