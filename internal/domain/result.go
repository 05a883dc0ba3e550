package domain

import (
	"context"
	"errors"
)

// ErrorCode classifies a failed ReadingResult without exposing Go error types.
type ErrorCode string

const (
	CodeInvalidInput        ErrorCode = "invalid_input"
	CodeBackendUnavailable  ErrorCode = "backend_unavailable"
	CodeBackendRejected     ErrorCode = "backend_rejected"
	CodeUnknownConversation ErrorCode = "unknown_conversation"
	CodePollTimeout         ErrorCode = "poll_timeout"
	CodeRunFailed           ErrorCode = "run_failed"
	CodeRequiresAction      ErrorCode = "requires_action"
	CodeCancelled           ErrorCode = "cancelled"
	CodeInternal            ErrorCode = "internal"
)

// CodeFor classifies err.
func CodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrUnknownConversation):
		return CodeUnknownConversation
	case errors.Is(err, ErrBackendRejected):
		return CodeBackendRejected
	case errors.Is(err, ErrBackendUnavailable):
		return CodeBackendUnavailable
	case errors.Is(err, ErrPollTimeout):
		return CodePollTimeout
	case errors.Is(err, ErrRequiresAction):
		return CodeRequiresAction
	case errors.Is(err, ErrRunFailed):
		return CodeRunFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	default:
		return CodeInternal
	}
}

// ReadingResult is the only value handed back to callers of the pipeline.
// Text is set iff Success; Error and Code are set iff !Success.
type ReadingResult struct {
	Success      bool                `json:"success"`
	Text         string              `json:"reading,omitempty"`
	Error        string              `json:"error,omitempty"`
	Code         ErrorCode           `json:"code,omitempty"`
	Conversation *ConversationHandle `json:"conversation,omitempty"`
	Job          *JobHandle          `json:"job,omitempty"`
}

// NewSuccessResult builds a successful result. Empty text is never a success,
// so it yields a run_failed result instead.
func NewSuccessResult(text string, conv *ConversationHandle, job *JobHandle) ReadingResult {
	if text == "" {
		return NewFailureResult(CodeRunFailed, "empty completion", conv, job)
	}
	return ReadingResult{
		Success:      true,
		Text:         text,
		Conversation: copyConversation(conv),
		Job:          copyJob(job),
	}
}

func NewFailureResult(code ErrorCode, msg string, conv *ConversationHandle, job *JobHandle) ReadingResult {
	if msg == "" {
		msg = string(code)
	}
	return ReadingResult{
		Error:        msg,
		Code:         code,
		Conversation: copyConversation(conv),
		Job:          copyJob(job),
	}
}

// NewErrorResult converts err into a failed result.
func NewErrorResult(err error, conv *ConversationHandle, job *JobHandle) ReadingResult {
	return NewFailureResult(CodeFor(err), err.Error(), conv, job)
}

// ThreadID returns the conversation thread, or "" when none was assigned.
func (r ReadingResult) ThreadID() string {
	if r.Conversation == nil {
		return ""
	}
	return r.Conversation.ThreadID
}

// RunID returns the run id, or "" for blocking results.
func (r ReadingResult) RunID() string {
	if r.Job == nil {
		return ""
	}
	return r.Job.RunID
}

func copyConversation(c *ConversationHandle) *ConversationHandle {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func copyJob(j *JobHandle) *JobHandle {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}
