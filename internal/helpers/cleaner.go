package helpers

import "strings"

// UnwrapFence returns the body of the fenced block s opens with, and s itself
// (trimmed) otherwise. Model output is often fenced even when asked for plain
// text. Both ``` and ~~~ fences are accepted and the info string is ignored.
func UnwrapFence(s string) string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	var fence string
	switch {
	case strings.HasPrefix(trimmed, "```"):
		fence = "```"
	case strings.HasPrefix(trimmed, "~~~"):
		fence = "~~~"
	default:
		return trimmed
	}
	nl := strings.IndexByte(trimmed, '\n')
	if nl == -1 {
		return trimmed
	}
	body := trimmed[nl+1:]
	end := strings.Index(body, fence)
	if end == -1 {
		return trimmed
	}
	return strings.TrimSpace(body[:end])
}
