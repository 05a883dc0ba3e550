package ports

import (
	"context"
	"time"

	"github.com/randomtoy/readingd/internal/domain"
)

// ConversationClient submits readings to the generative backend. Every call
// makes outbound requests and returns either domain.Immediate or
// domain.Pending.
type ConversationClient interface {
	Start(ctx context.Context, req domain.ReadingRequest) (domain.SubmissionOutcome, error)
	Continue(ctx context.Context, conv domain.ConversationHandle, message string) (domain.SubmissionOutcome, error)
}

// StatusReader reads the current state of a run. One call is one attempt.
type StatusReader interface {
	Status(ctx context.Context, job domain.JobHandle) (domain.JobSnapshot, error)
}

// Role of a stored message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a stored conversation.
type Message struct {
	ID        string    `json:"id" db:"id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ConversationStore keeps message history per thread.
// History returns domain.ErrUnknownConversation for threads it does not hold.
type ConversationStore interface {
	Append(ctx context.Context, threadID string, msgs ...Message) error
	History(ctx context.Context, threadID string) ([]Message, error)
}
