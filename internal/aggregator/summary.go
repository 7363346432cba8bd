package aggregator

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/citebank/internal/helpers"
	"github.com/mohammad-safakhou/citebank/internal/registry"
)

const (
	summaryTitleRunes = 80
	verifiedPrefix    = "[VERIFIED] "
)

// KeyFromSummary extracts the session key from a summary header.
func KeyFromSummary(summary string) (string, bool) {
	_, rest, ok := strings.Cut(summary, "[ID: ")
	if !ok {
		return "", false
	}
	key, _, ok := strings.Cut(rest, "]")
	return key, ok && key != ""
}

func renderSummary(sess *registry.Session) string {
	results := sess.Results()
	records := sess.Records()
	byID := make(map[string]registry.SourceRecord, len(records))
	verified := 0
	for _, r := range records {
		byID[r.CitationID] = r
		if r.Verified {
			verified++
		}
	}
	total := 0
	for _, qr := range results {
		total += len(qr.CitationIDs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SEARCH_COMPLETE [ID: %s]\n", sess.Key())
	fmt.Fprintf(&b, "Queries: %d | Results: %d | Sources: %d\n", len(results), total, len(records))
	if verified > 0 {
		fmt.Fprintf(&b, "*** FOUND %d VERIFIED OFFICIAL SOURCES ***\n", verified)
	}

	var ids []string
	for _, qr := range results {
		fmt.Fprintf(&b, "\n## %s\n", qr.Query)
		if qr.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", qr.Error)
		}
		for _, id := range qr.CitationIDs {
			rec := byID[id]
			title := rec.Title
			if rec.Verified {
				title = verifiedPrefix + title
			}
			fmt.Fprintf(&b, "  [%s] %s (%s)\n", id, helpers.TruncateRunes(title, summaryTitleRunes), rec.Domain)
			ids = append(ids, id)
		}
	}

	b.WriteString("\n")
	if len(ids) > 0 {
		fmt.Fprintf(&b, "Available citation IDs: %s\n", strings.Join(ids, ", "))
	} else {
		b.WriteString("Available citation IDs: none\n")
	}
	fmt.Fprintf(&b, "Use get_source_details(['%s', ...], search_id='%s') to read content.", firstOr(ids, helpers.CitationID(1)), sess.Key())
	return b.String()
}

func firstOr(ids []string, def string) string {
	if len(ids) == 0 {
		return def
	}
	return ids[0]
}
