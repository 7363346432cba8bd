package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is the outcome of HTML extraction.
type Page struct {
	Title  string
	Text   string
	Method string // readability, walker, failed
}

var boilerplate = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Template: true,
	atom.Button:   true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Blockquote: true, atom.Pre: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Figure: true, atom.Figcaption: true,
}

var (
	spaceRun = regexp.MustCompile(`[ \t\f\v\r]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// HTML extracts the main text of a page. Readability selects the article body;
// tables found outside boilerplate are appended row by row so tabular data
// survives. When readability finds nothing the whole document is walked, and
// when that is empty too the result carries FailedMarker. maxChars <= 0 means
// no cap.
func HTML(raw, pageURL string, maxChars int) Page {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Page{Text: FailedMarker, Method: "failed"}
	}

	var page Page
	if article, err := readability.FromReader(strings.NewReader(raw), parseURL(pageURL)); err == nil {
		page.Title = strings.TrimSpace(article.Title)
		if text := normalize(article.TextContent); text != "" {
			page.Text = text
			page.Method = "readability"
			if tables := renderTables(doc); tables != "" {
				page.Text += "\n\n" + tables
			}
		}
	}

	if page.Text == "" {
		var sb strings.Builder
		walk(doc, &sb)
		if text := normalize(sb.String()); text != "" {
			page.Text = text
			page.Method = "walker"
		}
	}
	if page.Title == "" {
		page.Title = documentTitle(doc)
	}

	if page.Text == "" {
		page.Text = FailedMarker
		page.Method = "failed"
		return page
	}
	if maxChars > 0 && len(page.Text) > maxChars {
		page.Text = Cap(page.Text, maxChars)
	}
	return page
}

// walk writes visible text, skipping boilerplate and rendering tables.
func walk(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			sb.WriteString(t)
			sb.WriteByte(' ')
		}
		return
	case html.ElementNode:
		if boilerplate[n.DataAtom] {
			return
		}
		switch {
		case n.DataAtom == atom.Table:
			sb.WriteString("\n\n")
			sb.WriteString(renderTable(n))
			sb.WriteString("\n\n")
			return
		case n.DataAtom == atom.Br:
			sb.WriteByte('\n')
			return
		case n.DataAtom == atom.Title:
			return
		case blocks[n.DataAtom]:
			sb.WriteString("\n\n")
			defer sb.WriteString("\n\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb)
	}
}

// renderTables renders every top-level table that is not inside boilerplate.
func renderTables(doc *html.Node) string {
	var out []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if boilerplate[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Table {
				if t := renderTable(n); t != "" {
					out = append(out, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return strings.Join(out, "\n\n")
}

// renderTable emits one line per row with cells separated by " | ".
func renderTable(table *html.Node) string {
	var rows []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cells = append(cells, strings.Join(strings.Fields(textOf(c)), " "))
				}
			}
			if len(cells) > 0 && strings.TrimSpace(strings.Join(cells, "")) != "" {
				rows = append(rows, strings.Join(cells, " | "))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(table)
	return strings.Join(rows, "\n")
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && boilerplate[n.DataAtom] {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func documentTitle(doc *html.Node) string {
	var title string
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			title = strings.Join(strings.Fields(textOf(n)), " ")
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(doc)
	return title
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRun.ReplaceAllString(s, "\n\n"))
}

// Cap cuts s to at most n bytes without splitting a UTF-8 sequence.
// n <= 0 leaves s untouched.
func Cap(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
