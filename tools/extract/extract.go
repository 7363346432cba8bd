// Package extract turns provider payloads and fetched pages into plain text.
//
// Both tiers are ordered lists of pure functions; the first non-empty output
// wins. Search payloads go through SearchChain, fetched HTML through HTML.
package extract

import (
	"strings"
)

// FailedMarker is returned when no pass could recover readable text.
const FailedMarker = "Error: could not extract main text (site might be JS-only)."

// Envelope is the provider-neutral text carried by one search hit.
type Envelope struct {
	Excerpts []string
	Extract  string
	Snippet  string
}

// Step produces text from an envelope, or "" to defer to the next step.
type Step func(Envelope) string

// SearchChain is the default search-tier order: excerpts, extract, snippet.
var SearchChain = []Step{FromExcerpts, FromExtract, FromSnippet}

// FromExcerpts joins non-empty excerpts with blank lines.
func FromExcerpts(e Envelope) string {
	parts := make([]string, 0, len(e.Excerpts))
	for _, x := range e.Excerpts {
		if x = strings.TrimSpace(x); x != "" {
			parts = append(parts, x)
		}
	}
	return strings.Join(parts, "\n\n")
}

func FromExtract(e Envelope) string { return strings.TrimSpace(e.Extract) }

func FromSnippet(e Envelope) string { return strings.TrimSpace(e.Snippet) }

// First runs chain in order and returns the first non-empty result.
func First(e Envelope, chain []Step) string {
	for _, step := range chain {
		if out := step(e); out != "" {
			return out
		}
	}
	return ""
}

// Search applies SearchChain.
func Search(e Envelope) string {
	return First(e, SearchChain)
}
