package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/citebank/provider/openai"
)

// Completer is the single chat-completion call the refiner needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewCompleter builds the completer selected by cfg.Provider. It returns nil
// with no error when no LLM is configured.
func NewCompleter(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Completer, error) {
	switch cfg.Provider {
	case config.LLMNone, "":
		return nil, nil
	case config.LLMOpenAI:
		return openai_provider.NewOpenAIClient(cfg, logger), nil
	case config.LLMGemini:
		return gemini.NewClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
