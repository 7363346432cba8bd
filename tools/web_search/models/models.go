package models

import "github.com/mohammad-safakhou/citebank/tools/extract"

// Query is one provider request.
type Query struct {
	Text           string
	MaxResults     int
	IncludeDomains []string
	ExcludeDomains []string
}

// Result is a provider hit before citation IDs are assigned. Providers fill
// whichever text fields their API returns.
type Result struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Snippet   string   `json:"snippet"`
	Extract   string   `json:"extract,omitempty"`
	Excerpts  []string `json:"excerpts,omitempty"`
	Published string   `json:"published,omitempty"`
}

// Envelope exposes the text fields to the extractor chain.
func (r Result) Envelope() extract.Envelope {
	return extract.Envelope{Excerpts: r.Excerpts, Extract: r.Extract, Snippet: r.Snippet}
}
