package domain

import "fmt"

// ConversationHandle identifies a backend thread. The backend assigns it on
// the first successful submission.
type ConversationHandle struct {
	ThreadID string `json:"threadId"`
}

// JobHandle identifies one run on a thread. It is only produced by
// non-blocking submissions.
type JobHandle struct {
	RunID    string `json:"runId"`
	ThreadID string `json:"threadId"`
}

// JobStatus is the backend-reported state of a run.
type JobStatus int

const (
	JobQueued JobStatus = iota + 1
	JobInProgress
	JobRequiresAction
	JobCompleted
	JobFailed
	JobCancelling
)

var jobStatusNames = map[JobStatus]string{
	JobQueued:         "queued",
	JobInProgress:     "in_progress",
	JobRequiresAction: "requires_action",
	JobCompleted:      "completed",
	JobFailed:         "failed",
	JobCancelling:     "cancelling",
}

func (s JobStatus) String() string {
	if name, ok := jobStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("JobStatus(%d)", int(s))
}

// Terminal reports whether no further polling is useful. requires_action and
// cancelling count as terminal because runs are never resumed here.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobRequiresAction, JobCancelling:
		return true
	}
	return false
}

// ParseJobStatus maps the backend's status string onto JobStatus.
func ParseJobStatus(raw string) (JobStatus, error) {
	for s, name := range jobStatusNames {
		if name == raw {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown job status %q", raw)
}

// JobSnapshot is the result of one successful status read.
type JobSnapshot struct {
	Status  JobStatus
	Content string
	Error   string
}

// SubmissionOutcome is what a backend returns for a start or continue call:
// either Immediate or Pending.
type SubmissionOutcome interface {
	submissionOutcome()
}

// Immediate carries finished text from a blocking submission. Conversation is
// set when the backend also reported a thread.
type Immediate struct {
	Text         string
	Conversation *ConversationHandle
}

// Pending carries the handles of a run that must be polled.
type Pending struct {
	Conversation ConversationHandle
	Job          JobHandle
}

func (Immediate) submissionOutcome() {}
func (Pending) submissionOutcome()   {}

// PollOutcome is the terminal result of polling a run: Completed, Failed or
// TimedOut.
type PollOutcome interface {
	pollOutcome()
}

type Completed struct {
	Text string
}

// Failed is a backend-reported terminal failure. Err is one of
// ErrRunFailed, ErrRequiresAction or ErrUnknownConversation.
type Failed struct {
	Reason string
	Err    error
}

// TimedOut means every attempt was used without seeing a terminal status.
// LastErr is the most recent read error, if any.
type TimedOut struct {
	Attempts int
	LastErr  error
}

func (Completed) pollOutcome() {}
func (Failed) pollOutcome()    {}
func (TimedOut) pollOutcome()  {}
