package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohammad-safakhou/citebank/internal/helpers"
)

// ErrUnknownCitation is returned by Update for IDs the session never issued.
var ErrUnknownCitation = errors.New("unknown citation id")

// SessionKey derives the key of a query batch: the first 12 hex characters of
// the SHA-256 of the JSON-encoded ordered list. The same list always maps to
// the same key.
func SessionKey(queries []string) string {
	if queries == nil {
		queries = []string{}
	}
	b, _ := json.Marshal(queries)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:12]
}

// QueryResult is the outcome of one query in a batch.
type QueryResult struct {
	Query       string   `json:"query"`
	CitationIDs []string `json:"citation_ids"`
	Error       string   `json:"error,omitempty"`
}

// SourceSummary is the reduced view returned by domain filtering.
type SourceSummary struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Session is one search batch and the records it discovered. It is safe for
// concurrent use.
type Session struct {
	mu         sync.RWMutex
	key        string
	queries    []string
	maxResults int
	createdAt  time.Time
	results    []QueryResult
	records    map[string]*SourceRecord
	order      []string
	summary    string
}

func NewSession(queries []string, maxResults int) *Session {
	q := append([]string(nil), queries...)
	return &Session{
		key:        SessionKey(q),
		queries:    q,
		maxResults: maxResults,
		createdAt:  time.Now().UTC(),
		results:    make([]QueryResult, len(q)),
		records:    make(map[string]*SourceRecord),
	}
}

func (s *Session) Key() string          { return s.key }
func (s *Session) MaxResults() int      { return s.maxResults }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Queries() []string {
	return append([]string(nil), s.queries...)
}

// SetQueryResult stores the outcome of query i together with the records it
// produced. Record IDs must not already exist in the session.
func (s *Session) SetQueryResult(i int, qr QueryResult, recs []SourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.results) {
		return fmt.Errorf("query index %d out of range", i)
	}
	for _, rec := range recs {
		if _, dup := s.records[rec.CitationID]; dup {
			return fmt.Errorf("citation id %s already allocated", rec.CitationID)
		}
	}
	qr.CitationIDs = append([]string(nil), qr.CitationIDs...)
	s.results[i] = qr
	for _, rec := range recs {
		r := rec
		s.records[r.CitationID] = &r
		s.order = append(s.order, r.CitationID)
	}
	sortCitationIDs(s.order)
	return nil
}

// sortCitationIDs orders ids by their numeric suffix, so queries finishing
// out of order still list as src_1, src_2, ...
func sortCitationIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, okA := helpers.ParseCitationID(ids[i])
		b, okB := helpers.ParseCitationID(ids[j])
		if okA && okB {
			return a < b
		}
		if okA != okB {
			return okA
		}
		return ids[i] < ids[j]
	})
}

// Results returns per-query outcomes in submission order.
func (s *Session) Results() []QueryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]QueryResult, len(s.results))
	for i, qr := range s.results {
		qr.CitationIDs = append([]string(nil), qr.CitationIDs...)
		out[i] = qr
	}
	return out
}

func (s *Session) SetSummary(summary string) {
	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
}

func (s *Session) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Populated reports whether the batch has been run and produced records.
func (s *Session) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary != "" && len(s.records) > 0
}

// Len is the number of records.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CitationIDs lists every record ID in allocation order.
func (s *Session) CitationIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Record returns a copy of the record with the given ID.
func (s *Session) Record(id string) (SourceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return SourceRecord{}, false
	}
	return *r, true
}

// Records returns copies of every record in allocation order.
func (s *Session) Records() []SourceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SourceRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

// Update applies fn to the record under the session's write lock. Changes
// are discarded when fn returns an error.
func (s *Session) Update(id string, fn func(*SourceRecord) error) (SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return SourceRecord{}, fmt.Errorf("%w: %s", ErrUnknownCitation, id)
	}
	next := *r
	if err := fn(&next); err != nil {
		return *r, err
	}
	*r = next
	return next, nil
}

// Domains returns the distinct record domains, sorted.
func (s *Session) Domains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.records))
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		if _, ok := seen[r.Domain]; ok {
			continue
		}
		seen[r.Domain] = struct{}{}
		out = append(out, r.Domain)
	}
	sort.Strings(out)
	return out
}

// FilterByDomain returns records whose domain exactly equals one of domains.
func (s *Session) FilterByDomain(domains []string) map[string]SourceSummary {
	want := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		want[d] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]SourceSummary)
	for id, r := range s.records {
		if _, ok := want[r.Domain]; ok {
			out[id] = SourceSummary{Title: r.Title, URL: r.URL, Snippet: r.Snippet}
		}
	}
	return out
}

// Snapshot is the serialized form of a session.
type Snapshot struct {
	Key        string         `json:"session_key"`
	Queries    []string       `json:"queries"`
	MaxResults int            `json:"max_results_per_query"`
	CreatedAt  time.Time      `json:"created_at"`
	Results    []QueryResult  `json:"per_query_results"`
	Records    []SourceRecord `json:"records"`
	Summary    string         `json:"summary"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Key:        s.key,
		Queries:    append([]string(nil), s.queries...),
		MaxResults: s.maxResults,
		CreatedAt:  s.createdAt,
		Results:    make([]QueryResult, len(s.results)),
		Records:    make([]SourceRecord, 0, len(s.order)),
		Summary:    s.summary,
	}
	copy(snap.Results, s.results)
	for _, id := range s.order {
		snap.Records = append(snap.Records, *s.records[id])
	}
	return snap
}

// Restore rebuilds a session from a snapshot, rejecting records that break
// the content invariant.
func Restore(snap Snapshot) (*Session, error) {
	if snap.Key == "" {
		return nil, errors.New("snapshot without session key")
	}
	s := &Session{
		key:        snap.Key,
		queries:    append([]string(nil), snap.Queries...),
		maxResults: snap.MaxResults,
		createdAt:  snap.CreatedAt,
		results:    append([]QueryResult(nil), snap.Results...),
		records:    make(map[string]*SourceRecord, len(snap.Records)),
		summary:    snap.Summary,
	}
	if len(s.results) < len(s.queries) {
		s.results = append(s.results, make([]QueryResult, len(s.queries)-len(s.results))...)
	}
	for _, rec := range snap.Records {
		r := rec
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.records[r.CitationID]; dup {
			return nil, fmt.Errorf("duplicate citation id %s", r.CitationID)
		}
		s.records[r.CitationID] = &r
		s.order = append(s.order, r.CitationID)
	}
	sortCitationIDs(s.order)
	return s, nil
}
