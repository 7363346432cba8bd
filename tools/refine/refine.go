// Package refine strips navigation, ads and boilerplate that survive HTML
// extraction by passing page text through an LLM.
package refine

import (
	"context"
	"errors"
	"strings"

	"github.com/mohammad-safakhou/citebank/internal/helpers"
	"github.com/mohammad-safakhou/citebank/provider"
)

// Refiner cleans fetched page text. Enabled reports whether Refine does
// anything at all, so callers can skip bookkeeping for the no-op.
type Refiner interface {
	Enabled() bool
	Refine(ctx context.Context, text string) (string, error)
}

// ErrEmptyOutput is returned when the model answers with nothing usable.
var ErrEmptyOutput = errors.New("refiner returned empty output")

const systemPrompt = `You are a data cleaning engine. Your only job is to extract the core informational content from text produced by a web scraper.
RULES:
1. Remove noise: navigation menus, footers, copyright notices, cookie banners, ads.
2. Preserve facts: dates, numbers, prices, names, citations, technical details.
3. Keep the original wording and language. Do not summarize.
4. No chatter: reply with the cleaned text only.`

type noop struct{}

// Noop returns a Refiner that never changes anything.
func Noop() Refiner { return noop{} }

func (noop) Enabled() bool { return false }

func (noop) Refine(_ context.Context, text string) (string, error) { return text, nil }

// LLM refines through a chat completer.
type LLM struct {
	completer provider.Completer
}

// New wraps c. A nil completer yields the no-op refiner.
func New(c provider.Completer) Refiner {
	if c == nil {
		return Noop()
	}
	return &LLM{completer: c}
}

func (r *LLM) Enabled() bool { return true }

func (r *LLM) Refine(ctx context.Context, text string) (string, error) {
	out, err := r.completer.Complete(ctx, systemPrompt, "INPUT TEXT:\n"+text)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(helpers.UnwrapFence(out))
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}
