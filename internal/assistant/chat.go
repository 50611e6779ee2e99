// Package assistant answers free-form questions with an OpenAI chat model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"docextract/internal/logger"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultModel       = "gpt-4.1-nano"
	DefaultTemperature = float32(0.7)
	DefaultMaxRetries  = 3
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")

// Config configures the chat model.
type Config struct {
	APIKey       string   // OpenAI API key
	BaseURL      string   // Optional OpenAI-compatible endpoint
	Model        string   // gpt-4.1-nano by default
	Temperature  *float32 // Sampling temperature, nil for DefaultTemperature
	MaxRetries   int      // Attempts per question
	MaxTokens    int      // Zero leaves the limit to the server
	SystemPrompt string   // Optional system message
}

// ChatModel implements services.ChatAssistant.
type ChatModel struct {
	client *openai.Client
	config Config
	log    zerolog.Logger
}

// NewChatModel creates a chat model client.
func NewChatModel(config Config) (*ChatModel, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	return NewChatModelWithClient(openai.NewClientWithConfig(clientConfig), config), nil
}

// NewChatModelWithClient creates a chat model around an existing client.
func NewChatModelWithClient(client *openai.Client, config Config) *ChatModel {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == nil {
		t := DefaultTemperature
		config.Temperature = &t
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	return &ChatModel{
		client: client,
		config: config,
		log:    logger.WithComponent("assistant"),
	}
}

// wireTemperature maps zero to the smallest positive float32, since the
// request field is omitted when zero and the server would apply its own default.
func (m *ChatModel) wireTemperature() float32 {
	if t := *m.config.Temperature; t > 0 {
		return t
	}
	return math.SmallestNonzeroFloat32
}

// Ask sends query as a single user message and returns the first reply.
func (m *ChatModel) Ask(ctx context.Context, query string) (string, error) {
	const op = "Ask"

	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%s: empty query", op)
	}

	var messages []openai.ChatCompletionMessage
	if m.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: m.config.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})

	m.log.Debug().
		Int("query_length", len(query)).
		Str("model", m.config.Model).
		Float32("temperature", *m.config.Temperature).
		Msg("Sending chat completion request")

	var lastErr error
	for attempt := 1; attempt <= m.config.MaxRetries; attempt++ {
		resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       m.config.Model,
			Temperature: m.wireTemperature(),
			Messages:    messages,
			MaxTokens:   m.config.MaxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("%s: %w", op, ctx.Err())
			}
			lastErr = err
			m.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", m.config.MaxRetries).
				Msg("Chat completion failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices from model")
			continue
		}

		content := resp.Choices[0].Message.Content
		m.log.Debug().
			Int("response_length", len(content)).
			Int("total_tokens", resp.Usage.TotalTokens).
			Msg("Received chat completion")
		return content, nil
	}

	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, m.config.MaxRetries, lastErr)
}
