// Package render adapts one raw rich-text week letter into the text dialect
// each messaging platform accepts.
//
// There are two real dialects (a markdown-oriented one and a limited
// inline-HTML one) plus a plain-text fallback. Each dialect is an independent
// renderer; adding a platform means adding a renderer, never subclassing an
// existing one. Rendering never fails: worst case it degrades to a
// tag-stripped plain-text version of the same content.
package render

// Format names a platform text dialect.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Renderings holds one rendered body per dialect.
type Renderings map[Format]string

// For returns the rendering for the given format, falling back to the
// plain-text rendering when no dedicated one exists.
func (r Renderings) For(f Format) string {
	if s, ok := r[f]; ok {
		return s
	}
	return r[FormatPlain]
}

// All renders the raw content into every known dialect.
func All(raw string) Renderings {
	return Renderings{
		FormatPlain:    PlainText(raw),
		FormatMarkdown: Markdown(raw),
		FormatHTML:     InlineHTML(raw),
	}
}
