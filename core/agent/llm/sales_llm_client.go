// Package llm is the OpenAI-compatible language model gateway. It talks to
// OpenRouter by default and trips a circuit breaker on repeated failures.
package llm

import (
	"context"
	"errors"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"
	"sales_server/pkg/apperr"
	"sales_server/pkg/httputil"
	"sales_server/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "deepseek/deepseek-chat-v3-0324:free"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("llm: api key not configured")
	// ErrEmptyCompletion is returned when the provider sends no choices.
	ErrEmptyCompletion = errors.New("llm: empty completion")
)

type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// Breaker: consecutive failures that open it, and how long it stays open.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Client struct {
	client      *openai.Client
	breaker     *gobreaker.CircuitBreaker
	model       string
	maxTokens   int
	temperature float32
	configured  bool
}

var _ out.LLMGateway = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = httputil.NewPooledClient(httputil.LLMClientConfig(cfg.Timeout))

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("[LLM] circuit breaker state changed")
		},
	})

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		breaker:     breaker,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		configured:  cfg.APIKey != "",
	}
}

// Complete sends the prompt and returns the first choice. Errors include
// transport failures, non-2xx answers, an open breaker and empty answers.
func (c *Client) Complete(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAI(messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, ErrEmptyCompletion
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", apperr.ExternalError("llm", err)
	}
	return result.(string), nil
}

// State reports the breaker state for health checks.
func (c *Client) State() string {
	return c.breaker.State().String()
}

func toOpenAI(messages []domain.PromptMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}
