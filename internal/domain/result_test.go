package domain_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randomtoy/readingd/internal/domain"
)

func TestNewSuccessResultNeverEmpty(t *testing.T) {
	t.Parallel()

	conv := &domain.ConversationHandle{ThreadID: "t1"}
	job := &domain.JobHandle{ThreadID: "t1", RunID: "r1"}

	res := domain.NewSuccessResult("", conv, job)
	assert.False(t, res.Success)
	assert.Empty(t, res.Text)
	assert.Equal(t, "empty completion", res.Error)
	assert.Equal(t, "t1", res.ThreadID())
	assert.Equal(t, "r1", res.RunID())

	res = domain.NewSuccessResult("text", conv, job)
	assert.True(t, res.Success)
	assert.Equal(t, "text", res.Text)
	assert.Empty(t, res.Error)

	// Handles are copied.
	conv.ThreadID = "other"
	assert.Equal(t, "t1", res.ThreadID())
}

func TestCodeFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want domain.ErrorCode
	}{
		{fmt.Errorf("build: %w", domain.ErrInvalidInput), domain.CodeInvalidInput},
		{fmt.Errorf("start: %w", domain.ErrBackendUnavailable), domain.CodeBackendUnavailable},
		{&domain.RejectedError{StatusCode: 422, Message: "bad cards"}, domain.CodeBackendRejected},
		{domain.ErrUnknownConversation, domain.CodeUnknownConversation},
		{domain.ErrPollTimeout, domain.CodePollTimeout},
		{domain.ErrRunFailed, domain.CodeRunFailed},
		{domain.ErrRequiresAction, domain.CodeRequiresAction},
		{context.Canceled, domain.CodeCancelled},
		{fmt.Errorf("boom"), domain.CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.CodeFor(tc.err), tc.err.Error())
	}
}

func TestRejectedErrorKeepsBackendMessage(t *testing.T) {
	t.Parallel()

	err := &domain.RejectedError{StatusCode: 400, Message: "question too long"}
	assert.ErrorIs(t, err, domain.ErrBackendRejected)
	assert.Contains(t, err.Error(), "question too long")
	assert.Contains(t, err.Error(), "400")
}
