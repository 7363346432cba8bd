package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/citebank/internal/helpers"
)

// FetchState tracks how far a record's content has been resolved.
type FetchState int

const (
	NotFetched FetchState = iota
	Fetched
	Refined
	FetchError
)

var stateNames = [...]string{
	NotFetched: "NOT_FETCHED",
	Fetched:    "FETCHED",
	Refined:    "REFINED",
	FetchError: "FETCH_ERROR",
}

func (s FetchState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("FetchState(%d)", int(s))
	}
	return stateNames[s]
}

func (s FetchState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("invalid fetch state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *FetchState) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = FetchState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown fetch state %q", string(b))
}

// ErrInvalidTransition is returned when a state change would break the
// content invariant.
var ErrInvalidTransition = errors.New("invalid fetch state transition")

// DefaultTitle is used when a provider returns a result without a title.
const DefaultTitle = "Untitled"

// SourceRecord is one discovered source. FullContent is set only in the
// Fetched and Refined states; use the Set* methods to move between states.
type SourceRecord struct {
	CitationID      string     `json:"citation_id"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	Domain          string     `json:"domain"`
	Snippet         string     `json:"snippet"`
	Excerpt         string     `json:"excerpt"`
	FullContent     *string    `json:"full_content"`
	State           FetchState `json:"fetch_state"`
	Error           string     `json:"error,omitempty"`
	Verified        bool       `json:"verified"`
	Query           string     `json:"query"`
	RefineAttempted bool       `json:"refine_attempted"`
	FetchedAt       time.Time  `json:"fetched_at,omitzero"`
}

// NewSourceRecord builds a NotFetched record from search-tier data.
func NewSourceRecord(id, rawURL, title, excerpt, query string, verified bool) SourceRecord {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	return SourceRecord{
		CitationID: id,
		URL:        strings.TrimSpace(rawURL),
		Title:      title,
		Domain:     helpers.Domain(rawURL),
		Snippet:    helpers.Preview(excerpt),
		Excerpt:    excerpt,
		State:      NotFetched,
		Verified:   verified,
		Query:      query,
	}
}

// NeedsFetch reports whether a detail request has to resolve content.
func (r *SourceRecord) NeedsFetch() bool {
	return r.State == NotFetched || r.State == FetchError
}

// SetFetched stores page content. Allowed from NotFetched and FetchError.
func (r *SourceRecord) SetFetched(content string, at time.Time) error {
	if !r.NeedsFetch() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, Fetched)
	}
	r.FullContent = &content
	r.State = Fetched
	r.Error = ""
	r.FetchedAt = at
	return nil
}

// SetFetchError records a failed fetch. Allowed from NotFetched and FetchError.
func (r *SourceRecord) SetFetchError(msg string, at time.Time) error {
	if !r.NeedsFetch() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, FetchError)
	}
	r.FullContent = nil
	r.State = FetchError
	r.Error = msg
	r.FetchedAt = at
	return nil
}

// SetRefined replaces fetched content with its refined form. Allowed only from
// Fetched, and only once.
func (r *SourceRecord) SetRefined(content string) error {
	if r.State != Fetched {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, Refined)
	}
	r.FullContent = &content
	r.State = Refined
	r.RefineAttempted = true
	return nil
}

// Content is what a detail request reports: page text once fetched, the
// error text after a failed fetch, nothing before.
func (r *SourceRecord) Content() string {
	switch r.State {
	case Fetched, Refined:
		if r.FullContent != nil {
			return *r.FullContent
		}
	case FetchError:
		return r.Error
	}
	return ""
}

func (r *SourceRecord) validate() error {
	hasContent := r.FullContent != nil
	wantContent := r.State == Fetched || r.State == Refined
	if hasContent != wantContent {
		return fmt.Errorf("record %s: state %s with content=%v", r.CitationID, r.State, hasContent)
	}
	return nil
}
