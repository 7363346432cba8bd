package helpers

import (
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"
)

// UnknownDomain is reported for URLs that cannot be parsed or carry no host.
const UnknownDomain = "unknown"

var trackingQueryParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"gclid":        {},
	"dclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"igshid":       {},
}

// CanonicalURL normalises a user supplied URL before it is requested.
// It lowercases scheme/host, removes default ports, strips fragments and
// tracking parameters, and sorts the remaining query. A missing scheme
// defaults to https.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}

	parsed, err := parseURLPreserveHost(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("unsupported scheme " + parsed.Scheme)
	}

	host := stripDefaultPort(strings.ToLower(parsed.Host), parsed.Scheme)
	if host == "" {
		return "", errors.New("url missing host")
	}
	parsed.Host = host

	if parsed.Path == "" {
		parsed.Path = "/"
	}
	clean := path.Clean(parsed.Path)
	if clean == "." {
		clean = "/"
	}
	if clean != "/" && strings.HasSuffix(parsed.Path, "/") {
		clean += "/"
	}
	parsed.Path = clean
	parsed.Fragment = ""

	query := parsed.Query()
	for key := range query {
		if _, drop := trackingQueryParams[strings.ToLower(key)]; drop {
			query.Del(key)
		}
	}
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, value := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			if value != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(value))
			}
		}
	}
	parsed.RawQuery = b.String()

	return parsed.String(), nil
}

// Domain returns the lowercase host of raw without default ports. It never
// fails: anything unparsable yields UnknownDomain.
func Domain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownDomain
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return UnknownDomain
	}
	host := stripDefaultPort(strings.ToLower(u.Host), strings.ToLower(u.Scheme))
	if host == "" {
		return UnknownDomain
	}
	return host
}

// DomainMatches reports whether domain equals one of the allowed domains or is
// a subdomain of one. A leading "www." on either side is ignored.
func DomainMatches(domain string, allowed []string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	if domain == "" || domain == UnknownDomain {
		return false
	}
	for _, a := range allowed {
		a = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(a)), "www.")
		if a == "" {
			continue
		}
		if domain == a || strings.HasSuffix(domain, "."+a) {
			return true
		}
	}
	return false
}

func stripDefaultPort(host, scheme string) string {
	switch {
	case strings.HasSuffix(host, ":80") && scheme != "https":
		return strings.TrimSuffix(host, ":80")
	case strings.HasSuffix(host, ":443") && scheme != "http":
		return strings.TrimSuffix(host, ":443")
	}
	return host
}

// parseURLPreserveHost parses raw, handling schemeless URLs.
func parseURLPreserveHost(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" && parsed.Host == "" {
		if strings.HasPrefix(raw, "//") {
			return url.Parse("https:" + raw)
		}
		return url.Parse("https://" + raw)
	}
	return parsed, nil
}
