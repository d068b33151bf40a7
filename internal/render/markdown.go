package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markdown renders raw letter markup for markdown-oriented channels.
//
// The upstream portal hands us HTML whose text already carries markdown
// markers (the portal's own converter emits them), so this dialect only
// needs to peel the HTML wrapper off: container tags are stripped with
// their text preserved, style and line-break-only tags are dropped, and
// two well-known converter artifacts are cleaned up (non-breaking spaces,
// doubled bold markers).
func Markdown(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return PlainText(raw)
	}

	var b strings.Builder
	collectMarkdownText(doc, &b)
	out := b.String()

	out = strings.ReplaceAll(out, " ", " ")
	// The upstream converter doubles bold markers around already-bold runs.
	out = strings.ReplaceAll(out, "****", "**")
	out = tidyWhitespace(out)

	if degenerate(out) {
		return PlainText(raw)
	}
	return out
}

// collectMarkdownText walks the tree appending text content, separating
// block elements with newlines so stripped containers don't glue words
// together.
func collectMarkdownText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head:
			return
		case atom.Br:
			// line-break-only tag: dropped
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMarkdownText(c, b)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Table, atom.Tr, atom.Blockquote:
		return true
	}
	return false
}

// degenerate reports whether the structured pass produced nothing but the
// tag delimiters themselves (what the parser salvages from markup like
// "<<>>"), in which case the pure stripping pass does a better job.
func degenerate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, r := range s {
		switch r {
		case '<', '>', ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}

// tidyWhitespace collapses runs of spaces and tabs, trims trailing blanks
// per line, caps consecutive newlines at two, and trims the ends.
func tidyWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	newlines := 0
	space := false
	for _, r := range s {
		switch r {
		case '\n', '\r':
			if r == '\r' {
				continue
			}
			space = false
			newlines++
			if newlines <= 2 {
				b.WriteByte('\n')
			}
		case ' ', '\t':
			space = true
		default:
			if space && b.Len() > 0 && newlines == 0 {
				b.WriteByte(' ')
			}
			space = false
			newlines = 0
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
