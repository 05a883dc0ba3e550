package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

const maxResponseBytes = 1 << 20

// Client implements ports.ConversationClient on the OpenRouter chat API.
// Chat completions are synchronous, so every submission is Immediate; the
// conversation history lives in the injected store.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	model          string
	fallbackModels []string
	store          ports.ConversationStore
	logger         *slog.Logger
}

var _ ports.ConversationClient = (*Client)(nil)

func NewClient(httpClient *http.Client, apiKey, baseURL, model string, fallbackModels []string, store ports.ConversationStore, logger *slog.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		fallbackModels: fallbackModels,
		store:          store,
		logger:         logger,
	}
}

// chatRequest / chatResponse mirror the OpenAI-compatible API shapes.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Start(ctx context.Context, req domain.ReadingRequest) (domain.SubmissionOutcome, error) {
	turns := []ports.Message{
		newMessage(ports.RoleSystem, systemPrompt),
		newMessage(ports.RoleUser, buildUserPrompt(req)),
	}

	text, err := c.complete(ctx, turns)
	if err != nil {
		return nil, fmt.Errorf("start reading: %w", err)
	}

	threadID := uuid.NewString()
	turns = append(turns, newMessage(ports.RoleAssistant, text))
	if err := c.store.Append(ctx, threadID, turns...); err != nil {
		// The reading itself succeeded; it just cannot be continued.
		c.logger.WarnContext(ctx, "failed to store conversation", "thread_id", threadID, "error", err)
		return domain.Immediate{Text: text}, nil
	}
	return domain.Immediate{Text: text, Conversation: &domain.ConversationHandle{ThreadID: threadID}}, nil
}

func (c *Client) Continue(ctx context.Context, conv domain.ConversationHandle, message string) (domain.SubmissionOutcome, error) {
	history, err := c.store.History(ctx, conv.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	question := newMessage(ports.RoleUser, message)
	text, err := c.complete(ctx, append(history, question))
	if err != nil {
		return nil, fmt.Errorf("continue reading: %w", err)
	}

	if err := c.store.Append(ctx, conv.ThreadID, question, newMessage(ports.RoleAssistant, text)); err != nil {
		c.logger.WarnContext(ctx, "failed to store follow-up", "thread_id", conv.ThreadID, "error", err)
	}
	return domain.Immediate{Text: text, Conversation: &conv}, nil
}

// complete tries the primary model and then each fallback in order. Only an
// unavailable model moves on to the next one; a rejection is returned as is.
func (c *Client) complete(ctx context.Context, turns []ports.Message) (string, error) {
	models := make([]string, 0, 1+len(c.fallbackModels))
	models = append(models, c.model)
	models = append(models, c.fallbackModels...)

	messages := make([]chatMessage, len(turns))
	for i, m := range turns {
		messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}

	var lastErr error
	for _, model := range models {
		text, err := c.callLLM(ctx, model, messages)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil || !errors.Is(err, domain.ErrBackendUnavailable) {
			return "", err
		}
		lastErr = err
		if len(models) > 1 {
			c.logger.WarnContext(ctx, "model failed, trying next", "model", model, "error", err)
		}
	}
	return "", lastErr
}

func (c *Client) callLLM(ctx context.Context, model string, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrBackendUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: upstream status %d: %s", domain.ErrBackendUnavailable, resp.StatusCode, string(respBody))
	case resp.StatusCode != http.StatusOK:
		return "", &domain.RejectedError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", &domain.RejectedError{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	if len(chatResp.Choices) == 0 {
		return "", &domain.RejectedError{StatusCode: resp.StatusCode, Message: "no choices in response"}
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", &domain.RejectedError{StatusCode: resp.StatusCode, Message: "empty completion"}
	}
	return text, nil
}

func newMessage(role ports.Role, content string) ports.Message {
	return ports.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

