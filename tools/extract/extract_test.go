package extract

import (
	"strings"
	"testing"
)

func TestSearchChainOrder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   Envelope
		want string
	}{
		{
			name: "excerpts win",
			in:   Envelope{Excerpts: []string{" first ", "", "second"}, Extract: "extract", Snippet: "snippet"},
			want: "first\n\nsecond",
		},
		{
			name: "extract when excerpts blank",
			in:   Envelope{Excerpts: []string{"  "}, Extract: "extract", Snippet: "snippet"},
			want: "extract",
		},
		{
			name: "snippet last",
			in:   Envelope{Snippet: " snippet "},
			want: "snippet",
		},
		{
			name: "nothing",
			in:   Envelope{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Search(tt.in); got != tt.want {
				t.Fatalf("Search() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstCustomChain(t *testing.T) {
	t.Parallel()
	chain := []Step{FromSnippet, FromExcerpts}
	got := First(Envelope{Excerpts: []string{"x"}, Snippet: "s"}, chain)
	if got != "s" {
		t.Fatalf("First() = %q, want custom order", got)
	}
}

const articlePage = `<!doctype html>
<html><head><title>Phone Specs</title></head>
<body>
<nav><a href="/">Home</a> <a href="/shop">Shop</a> NAVIGATION-LINKS</nav>
<header>SITE-HEADER</header>
<main><article>
<h1>Model X specifications</h1>
<p>The Model X ships with a large battery and a bright display. Reviewers praised the
camera system, and the device supports fast charging over USB-C for most accessories.</p>
<p>Availability starts in the spring across most regions, with carrier variants following
shortly after the unlocked release. Pricing depends on the storage configuration chosen.</p>
<table>
<tr><th>Spec</th><th>Value</th></tr>
<tr><td>Battery</td><td>5000 mAh</td></tr>
<tr><td>Display</td><td>6.7 in</td></tr>
</table>
</article></main>
<footer>SITE-FOOTER</footer>
<script>var tracking = "SCRIPT-BODY";</script>
</body></html>`

func TestHTMLKeepsArticleAndTables(t *testing.T) {
	t.Parallel()
	page := HTML(articlePage, "https://example.com/phones/x", 0)
	if page.Method == "failed" {
		t.Fatalf("extraction failed: %+v", page)
	}
	for _, want := range []string{"large battery", "Battery | 5000 mAh", "Display | 6.7 in"} {
		if !strings.Contains(page.Text, want) {
			t.Fatalf("text missing %q:\n%s", want, page.Text)
		}
	}
	if strings.Contains(page.Text, "SCRIPT-BODY") {
		t.Fatalf("text kept script body:\n%s", page.Text)
	}
	if page.Title == "" {
		t.Fatalf("expected a title")
	}
}

func TestHTMLWalkerSkipsBoilerplate(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	doc := mustParse(t, articlePage)
	walk(doc, &sb)
	text := normalize(sb.String())
	if !strings.Contains(text, "Spec | Value") {
		t.Fatalf("walker lost table header:\n%s", text)
	}
	for _, unwanted := range []string{"SITE-HEADER", "SITE-FOOTER", "NAVIGATION-LINKS", "SCRIPT-BODY"} {
		if strings.Contains(text, unwanted) {
			t.Fatalf("walker kept boilerplate %q:\n%s", unwanted, text)
		}
	}
}

func TestHTMLFailedMarker(t *testing.T) {
	t.Parallel()
	page := HTML(`<html><head><script>render()</script></head><body><div id="root"></div><script>app()</script></body></html>`, "https://spa.example.com", 0)
	if page.Text != FailedMarker || page.Method != "failed" {
		t.Fatalf("HTML() = %+v, want failed marker", page)
	}
}

func TestHTMLRespectsMaxChars(t *testing.T) {
	t.Parallel()
	page := HTML(articlePage, "https://example.com/phones/x", 40)
	if len(page.Text) > 40 {
		t.Fatalf("text length = %d, want <= 40", len(page.Text))
	}
}

func TestRenderTableSkipsEmptyRows(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<table><tr><td> </td></tr><tr><td>a</td><td>b</td></tr></table>`)
	if got := renderTables(doc); got != "a | b" {
		t.Fatalf("renderTables() = %q", got)
	}
}
