package helpers

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// CitationPrefix starts every citation identifier.
const CitationPrefix = "src_"

// CitationID renders the n-th identifier, e.g. src_4.
func CitationID(n int) string {
	return CitationPrefix + strconv.Itoa(n)
}

// ParseCitationID returns the ordinal of a src_<n> identifier.
func ParseCitationID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(id), CitationPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// previewConfig controls preview formatting.
type previewConfig struct {
	limit    int
	ellipsis string
}

// PreviewOption configures Preview.
type PreviewOption func(*previewConfig)

// WithLimit truncates previews to n runes (default 150).
func WithLimit(n int) PreviewOption {
	return func(cfg *previewConfig) {
		if n > 0 {
			cfg.limit = n
		}
	}
}

// WithEllipsis sets the marker appended to truncated previews (default "...").
func WithEllipsis(s string) PreviewOption {
	return func(cfg *previewConfig) { cfg.ellipsis = s }
}

// Preview collapses whitespace, including newlines, and truncates text for
// one-line display.
func Preview(text string, opts ...PreviewOption) string {
	cfg := previewConfig{limit: 150, ellipsis: "..."}
	for _, opt := range opts {
		opt(&cfg)
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= cfg.limit {
		return text
	}
	return TruncateRunes(text, cfg.limit) + cfg.ellipsis
}

// TruncateRunes cuts s to at most n runes without splitting a character.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
