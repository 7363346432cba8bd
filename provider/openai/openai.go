package openai_provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/internal/retry"
)

const (
	openaiAPIURL = "https://api.openai.com/v1/chat/completions"
)

// client implements provider.Completer using OpenAI's chat completions API
type client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	policy      retry.Policy
	http        *httpx.Client
	logger      *zap.Logger
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the OpenAI API
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates a new OpenAI client. llm.base_url points it at any
// OpenAI-compatible endpoint.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) *client {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := openaiAPIURL
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	}
	return &client{
		apiKey:      cfg.APIKey,
		baseURL:     endpoint,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		policy:      retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: time.Second, AttemptTimeout: cfg.Timeout},
		http:        httpx.New(cfg.Timeout),
		logger:      logger.Named("openai"),
	}
}

// Complete sends one system+user exchange and returns the first choice.
func (c *client) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []Message{{Role: "user", Content: user}}
	if strings.TrimSpace(system) != "" {
		messages = append([]Message{{Role: "system", Content: system}}, messages...)
	}
	return retry.Do(ctx, retry.ComponentLLM, c.policy, func(ctx context.Context) (string, error) {
		return c.sendRequest(ctx, messages)
	}, retry.WithLogger(c.logger))
}

// sendRequest sends a request to the OpenAI API
func (c *client) sendRequest(ctx context.Context, messages []Message) (string, error) {
	requestBody := request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	c.logger.Debug("chat completion", zap.String("model", c.model), zap.Int("messages", len(messages)))

	var openaiResp response
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL, headers, requestBody, &openaiResp); err != nil {
		return "", err
	}
	if len(openaiResp.Choices) == 0 {
		return "", retry.Permanent(errors.New("no choices in response"))
	}
	return openaiResp.Choices[0].Message.Content, nil
}
