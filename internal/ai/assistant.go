package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// FallbackReply is sent to the visitor when the assistant cannot answer.
const FallbackReply = "Sorry, I can't answer right now. You can ask to talk with an agent and someone will join shortly."

const maxHistory = 20

// ErrNotConfigured is returned by a client without an API key.
var ErrNotConfigured = errors.New("assistant is not configured")

// Assistant answers visitor messages in a chat session.
type Assistant interface {
	Reply(ctx context.Context, history []domain.ChatMessage) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// OpenAIClient talks to any OpenAI compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewOpenAIClient builds a client from config.
func NewOpenAIClient(cfg config.AIConfig, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
	}
}

// Reply sends the recent session history and returns the assistant's answer.
func (c *OpenAIClient) Reply(ctx context.Context, history []domain.ChatMessage) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    c.buildMessages(history),
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	var result completionResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode completion response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("assistant error: %s", result.Error.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("assistant returned no choices")
	}

	answer := strings.TrimSpace(result.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("assistant returned an empty answer")
	}
	return answer, nil
}

func (c *OpenAIClient) buildMessages(history []domain.ChatMessage) []chatMessage {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	msgs := make([]chatMessage, 0, len(history)+1)
	if c.systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: c.systemPrompt})
	}
	for _, m := range history {
		switch m.Sender {
		case domain.ChatSenderVisitor:
			msgs = append(msgs, chatMessage{Role: "user", Content: m.Body})
		case domain.ChatSenderAI, domain.ChatSenderAgent:
			msgs = append(msgs, chatMessage{Role: "assistant", Content: m.Body})
		}
	}
	return msgs
}

// ReplyOrFallback never fails: assistant errors are logged and replaced with FallbackReply.
func ReplyOrFallback(ctx context.Context, a Assistant, history []domain.ChatMessage, logger *zap.Logger) string {
	if a == nil {
		return FallbackReply
	}
	answer, err := a.Reply(ctx, history)
	if err != nil {
		if logger != nil {
			logger.Warn("assistant reply failed", zap.Error(err))
		}
		return FallbackReply
	}
	return answer
}
