package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomtoy/readingd/internal/adapters/decks"
	"github.com/randomtoy/readingd/internal/app"
	"github.com/randomtoy/readingd/internal/domain"
)

type cliClient struct {
	mu      sync.Mutex
	lastReq domain.ReadingRequest
	lastMsg string
}

func (c *cliClient) Start(_ context.Context, req domain.ReadingRequest) (domain.SubmissionOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReq = req
	return domain.Pending{
		Conversation: domain.ConversationHandle{ThreadID: "t1"},
		Job:          domain.JobHandle{ThreadID: "t1", RunID: "r1"},
	}, nil
}

func (c *cliClient) Continue(_ context.Context, conv domain.ConversationHandle, message string) (domain.SubmissionOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMsg = message
	if conv.ThreadID != "t1" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownConversation, conv.ThreadID)
	}
	return domain.Immediate{Text: "More of the same.", Conversation: &conv}, nil
}

// completingReader reports in_progress once per run and then completes.
type completingReader struct {
	mu    sync.Mutex
	reads int
}

func (r *completingReader) Status(context.Context, domain.JobHandle) (domain.JobSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.reads%2 == 1 {
		return domain.JobSnapshot{Status: domain.JobInProgress}, nil
	}
	return domain.JobSnapshot{Status: domain.JobCompleted, Content: "Focus on growth."}, nil
}

func testWire(client *cliClient) wireFunc {
	return func(_ context.Context, logOut io.Writer) (*deps, error) {
		logger := slog.New(slog.NewTextHandler(logOut, nil))
		poller := app.NewStatusPoller(&completingReader{}, app.PollConfig{MaxAttempts: 5, Interval: time.Millisecond}, nil, logger)
		return &deps{
			logger:  logger,
			service: app.NewReadingService(client, poller, decks.NewEmbeddedStore(), stdRNG{}, nil, logger),
		}, nil
	}
}

func executeCLI(t *testing.T, client *cliClient, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd(testWire(client))
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestReadWithCards(t *testing.T) {
	client := &cliClient{}
	stdout, stderr, err := executeCLI(t, client,
		"read",
		"--question", "What should I focus on?",
		"--card", "fool:The Fool:Air",
		"--card", "sun:The Sun",
		"--spread", "two_card",
		"--name", "Ada",
	)
	require.NoError(t, err)

	var res domain.ReadingResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Focus on growth.", res.Text)
	assert.Equal(t, "t1", res.ThreadID())
	assert.Equal(t, "r1", res.RunID())

	assert.Contains(t, stderr, "attempt 1: in_progress")
	assert.Contains(t, stderr, "attempt 2: completed")

	cards := client.lastReq.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, domain.ElementAir, cards[0].Element)
	assert.Equal(t, "The Sun", cards[1].Name)
	assert.Equal(t, domain.SpreadType("two_card"), client.lastReq.SpreadType())
	assert.Equal(t, "Ada", client.lastReq.Profile().Name)
}

func TestReadDrawsWhenNoCardsGiven(t *testing.T) {
	client := &cliClient{}
	stdout, _, err := executeCLI(t, client, "read", "--question", "Where next?", "-n", "1")
	require.NoError(t, err)

	var out drawnOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, domain.SpreadSingle, out.Spread)
	assert.Equal(t, decks.DefaultDeckID, out.Deck)
	require.Len(t, out.Cards, 1)
	assert.True(t, out.Result.Success)
	assert.Len(t, client.lastReq.Cards(), 1)
}

func TestReadRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		args []string
		want string
	}{
		"missing question": {[]string{"read", "--card", "fool:The Fool"}, `required flag(s) "question" not set`},
		"malformed card":   {[]string{"read", "--question", "Why?", "--card", "fool"}, "invalid --card"},
		"unknown deck":     {[]string{"read", "--question", "Why?", "--deck", "lenormand"}, "deck not found"},
		"too many cards":   {[]string{"read", "--question", "Why?", "-n", "11"}, "draw cards"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := executeCLI(t, &cliClient{}, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFollowUp(t *testing.T) {
	client := &cliClient{}
	stdout, _, err := executeCLI(t, client, "follow-up", "--thread", "t1", "--message", "And at work?")
	require.NoError(t, err)

	var res domain.ReadingResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "More of the same.", res.Text)
	assert.Equal(t, "And at work?", client.lastMsg)
}

func TestFollowUpUnknownThreadPrintsResultAndFails(t *testing.T) {
	stdout, _, err := executeCLI(t, &cliClient{}, "follow-up", "--thread", "gone", "--message", "hello")
	require.ErrorIs(t, err, errReadingFailed)

	var res domain.ReadingResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.False(t, res.Success)
	assert.Equal(t, domain.CodeUnknownConversation, res.Code)
	assert.Equal(t, "gone", res.ThreadID())
}

func TestFollowUpRequiresFlags(t *testing.T) {
	_, _, err := executeCLI(t, &cliClient{}, "follow-up", "--thread", "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "message" not set`)
}
