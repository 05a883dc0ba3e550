package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomtoy/readingd/internal/domain"
)

func TestParseJobStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]domain.JobStatus{
		"queued":          domain.JobQueued,
		"in_progress":     domain.JobInProgress,
		"requires_action": domain.JobRequiresAction,
		"completed":       domain.JobCompleted,
		"failed":          domain.JobFailed,
		"cancelling":      domain.JobCancelling,
	}
	for raw, want := range cases {
		got, err := domain.ParseJobStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, raw, got.String())
	}

	_, err := domain.ParseJobStatus("in-progress")
	require.Error(t, err)
}

func TestJobStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, domain.JobQueued.Terminal())
	assert.False(t, domain.JobInProgress.Terminal())
	assert.True(t, domain.JobCompleted.Terminal())
	assert.True(t, domain.JobFailed.Terminal())
	assert.True(t, domain.JobRequiresAction.Terminal())
	assert.True(t, domain.JobCancelling.Terminal())
}
