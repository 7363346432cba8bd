// Package gemini adapts the Google GenAI SDK to provider.Completer.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/retry"
)

type Client struct {
	client *genai.Client
	model  string
	cfg    *genai.GenerateContentConfig
	policy retry.Policy
	logger *zap.Logger
}

func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	gcfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	return &Client{
		client: client,
		model:  cfg.Model,
		cfg:    gcfg,
		policy: retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: 2 * time.Second, AttemptTimeout: cfg.Timeout},
		logger: logger.Named("gemini"),
	}, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	gcfg := *c.cfg
	if strings.TrimSpace(system) != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	return retry.Do(ctx, retry.ComponentLLM, c.policy, func(ctx context.Context) (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &gcfg)
		if err != nil {
			if permanent(err) {
				return "", retry.Permanent(err)
			}
			return "", err
		}
		text := resp.Text()
		if text == "" {
			return "", retry.Permanent(errors.New("empty response"))
		}
		return text, nil
	}, retry.WithLogger(c.logger))
}

// permanent reports API errors a retry cannot fix: any 4xx except 408 and 429.
func permanent(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.Code
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
