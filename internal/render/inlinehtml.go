package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// InlineHTML renders raw letter markup for channels that accept a limited
// inline-HTML dialect (bold/italic/underline wrappers, no block elements).
//
// The tree walk keeps inline emphasis, flattens paragraphs and headings to
// "content + blank line" (headings additionally bold), turns line breaks
// into newlines, and passes everything else through as its concatenated
// children. On parse failure it degrades to plain text.
func InlineHTML(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return PlainText(raw)
	}

	var b strings.Builder
	walkInline(doc, &b)
	out := b.String()

	out = strings.ReplaceAll(out, " ", " ")
	out = residualBreaks.Replace(out)
	out = collapseInline(out)
	return strings.TrimSpace(out)
}

// residualBreaks converts line-break markup that survived the walk as text
// (double-encoded letters are a recurring upstream glitch) into newlines.
var residualBreaks = strings.NewReplacer(
	"&lt;br&gt;", "\n",
	"&lt;br/&gt;", "\n",
	"&lt;br /&gt;", "\n",
	"<br>", "\n",
	"<br/>", "\n",
	"<br />", "\n",
)

var inlineEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func walkInline(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(inlineEscaper.Replace(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head:
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		case atom.B, atom.Strong:
			wrapChildren(n, b, "b")
			return
		case atom.I, atom.Em:
			wrapChildren(n, b, "i")
			return
		case atom.U:
			wrapChildren(n, b, "u")
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			wrapChildren(n, b, "b")
			b.WriteString("\n\n")
			return
		case atom.P:
			walkChildren(n, b)
			b.WriteString("\n\n")
			return
		case atom.Div:
			walkChildren(n, b)
			b.WriteByte('\n')
			return
		}
	}
	walkChildren(n, b)
}

func walkChildren(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkInline(c, b)
	}
}

func wrapChildren(n *html.Node, b *strings.Builder, tag string) {
	b.WriteString("<" + tag + ">")
	walkChildren(n, b)
	b.WriteString("</" + tag + ">")
}

// collapseInline squeezes runs of spaces/tabs to one space (newlines are
// kept) and caps consecutive newlines at two.
func collapseInline(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	spaces := 0
	newlines := 0
	for _, r := range s {
		switch r {
		case ' ', '\t':
			spaces++
		case '\r':
			// dropped
		case '\n':
			spaces = 0
			newlines++
			if newlines <= 2 {
				b.WriteByte('\n')
			}
		default:
			if spaces > 0 && newlines == 0 {
				b.WriteByte(' ')
			}
			spaces = 0
			newlines = 0
			b.WriteRune(r)
		}
	}
	return b.String()
}
