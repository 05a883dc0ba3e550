// Package assistant talks to the thread/run based reading backend. A
// submission either answers in the same response or returns a run that has
// to be polled through the status endpoint.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

const (
	readingPath = "/reading"
	statusPath  = "/status"

	maxResponseBytes      = 1 << 20
	maxErrorMessageBytes  = 200
	defaultRequestTimeout = 30 * time.Second
)

// Client implements ports.ConversationClient and ports.StatusReader.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	requestTimeout time.Duration
	logger         *slog.Logger
}

var (
	_ ports.ConversationClient = (*Client)(nil)
	_ ports.StatusReader       = (*Client)(nil)
)

// NewClient builds a client for the backend at baseURL. requestTimeout bounds
// each call whose context has no deadline of its own.
func NewClient(httpClient *http.Client, baseURL, apiKey string, requestTimeout time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

type cardPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Element string `json:"element,omitempty"`
}

type startPayload struct {
	Profile    domain.Profile `json:"profile"`
	Cards      []cardPayload  `json:"cards"`
	Question   string         `json:"question"`
	SpreadType string         `json:"spreadType"`
}

type continuePayload struct {
	ThreadID string `json:"threadId"`
	Message  string `json:"message"`
}

type readingResponse struct {
	Success  bool   `json:"success"`
	Reading  string `json:"reading"`
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Content string `json:"content"`
}

func (c *Client) Start(ctx context.Context, req domain.ReadingRequest) (domain.SubmissionOutcome, error) {
	cards := req.Cards()
	payload := startPayload{
		Profile:    req.Profile(),
		Cards:      make([]cardPayload, len(cards)),
		Question:   req.Question(),
		SpreadType: string(req.SpreadType()),
	}
	for i, card := range cards {
		payload.Cards[i] = cardPayload{ID: card.ID, Name: card.Name, Element: card.Element}
	}

	status, body, err := c.do(ctx, http.MethodPost, readingPath, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("start reading: %w", err)
	}
	outcome, err := decodeSubmission(status, body, false)
	if err != nil {
		return nil, fmt.Errorf("start reading: %w", err)
	}
	c.logSubmission(ctx, "start", outcome)
	return outcome, nil
}

func (c *Client) Continue(ctx context.Context, conv domain.ConversationHandle, message string) (domain.SubmissionOutcome, error) {
	payload := continuePayload{ThreadID: conv.ThreadID, Message: message}

	status, body, err := c.do(ctx, http.MethodPost, readingPath, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("continue reading: %w", err)
	}
	outcome, err := decodeSubmission(status, body, true)
	if err != nil {
		return nil, fmt.Errorf("continue reading: %w", err)
	}
	c.logSubmission(ctx, "continue", outcome)
	return outcome, nil
}

func (c *Client) Status(ctx context.Context, job domain.JobHandle) (domain.JobSnapshot, error) {
	query := url.Values{}
	query.Set("threadId", job.ThreadID)
	query.Set("runId", job.RunID)

	status, body, err := c.do(ctx, http.MethodGet, statusPath, query, nil)
	if err != nil {
		return domain.JobSnapshot{}, fmt.Errorf("read status: %w", err)
	}
	if status == http.StatusNotFound || status == http.StatusGone {
		return domain.JobSnapshot{}, fmt.Errorf("read status: %w: %s", domain.ErrUnknownConversation, errorMessage(status, body))
	}
	if err := checkStatus(status, body); err != nil {
		return domain.JobSnapshot{}, fmt.Errorf("read status: %w", err)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.JobSnapshot{}, fmt.Errorf("read status: %w", &domain.RejectedError{StatusCode: status, Message: "malformed status response: " + err.Error()})
	}
	if !resp.Success && resp.Status == "" {
		return domain.JobSnapshot{}, fmt.Errorf("read status: %w", &domain.RejectedError{StatusCode: status, Message: errorMessage(status, body)})
	}

	st, err := domain.ParseJobStatus(resp.Status)
	if err != nil {
		return domain.JobSnapshot{}, fmt.Errorf("read status: %w", &domain.RejectedError{StatusCode: status, Message: err.Error()})
	}

	snap := domain.JobSnapshot{Status: st, Content: resp.Content}
	if gjson.GetBytes(body, "error").Exists() {
		snap.Error = errorMessage(status, body)
	}
	return snap, nil
}

// decodeSubmission interprets a /reading response. A thread and run id pair
// means the work is pending; otherwise the reading text must be present.
func decodeSubmission(status int, body []byte, continuation bool) (domain.SubmissionOutcome, error) {
	if continuation && (status == http.StatusNotFound || status == http.StatusGone) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownConversation, errorMessage(status, body))
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp readingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.RejectedError{StatusCode: status, Message: "malformed reading response: " + err.Error()}
	}
	if !resp.Success {
		return nil, &domain.RejectedError{StatusCode: status, Message: errorMessage(status, body)}
	}

	if resp.ThreadID != "" && resp.RunID != "" {
		return domain.Pending{
			Conversation: domain.ConversationHandle{ThreadID: resp.ThreadID},
			Job:          domain.JobHandle{ThreadID: resp.ThreadID, RunID: resp.RunID},
		}, nil
	}

	text := strings.TrimSpace(resp.Reading)
	if text == "" {
		return nil, &domain.RejectedError{StatusCode: status, Message: "response carried neither a reading nor a run"}
	}
	out := domain.Immediate{Text: text}
	if resp.ThreadID != "" {
		out.Conversation = &domain.ConversationHandle{ThreadID: resp.ThreadID}
	}
	return out, nil
}

// checkStatus classifies non-2xx responses. Gateway failures mean the backend
// could not be reached; every other status is the backend's own answer.
func checkStatus(status int, body []byte) error {
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d: %s", domain.ErrBackendUnavailable, status, errorMessage(status, body))
	}
	return &domain.RejectedError{StatusCode: status, Message: errorMessage(status, body)}
}

// errorMessage pulls a human-readable message out of an error body. Backends
// disagree on the shape, so a few common paths are tried.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "detail"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text, maxErrorMessageBytes)
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return fmt.Sprintf("status %d", status)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %w", domain.ErrBackendUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func (c *Client) logSubmission(ctx context.Context, op string, outcome domain.SubmissionOutcome) {
	switch o := outcome.(type) {
	case domain.Pending:
		c.logger.DebugContext(ctx, "reading submitted", "op", op, "mode", ports.ModePending, "thread_id", o.Conversation.ThreadID, "run_id", o.Job.RunID)
	case domain.Immediate:
		c.logger.DebugContext(ctx, "reading submitted", "op", op, "mode", ports.ModeImmediate)
	}
}
