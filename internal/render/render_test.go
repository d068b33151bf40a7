package render

import (
	"testing"
)

func TestMarkdown(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text passes through", "hello world", "hello world"},
		{"block elements become newlines", "<h1>Hi</h1><p>Party Friday</p>", "Hi\nParty Friday"},
		{"style dropped", "<style>p{color:red}</style><p>body</p>", "body"},
		{"script dropped", "<script>alert(1)</script>ok", "ok"},
		{"nbsp becomes space", "a&nbsp;b", "a b"},
		{"collapsed empty bold", "before ****after", "before **after"},
		{"nested containers", "<div><div><p>deep</p></div></div>", "deep"},
		{"newlines capped at two", "<p>a</p><p></p><p></p><p>b</p>", "a\n\nb"},
		{"preserves markdown syntax", "**bold** and _italic_", "**bold** and _italic_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Markdown(tc.in)
			if got != tc.want {
				t.Fatalf("Markdown(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMarkdownDegenerateFallsBack(t *testing.T) {
	// Inputs that parse to nothing but tag delimiters must take the
	// plain-text stripping path instead of producing an empty message.
	in := "<<<>>>"
	got := Markdown(in)
	if got == "" {
		t.Fatal("expected non-empty output for tag soup")
	}
	if want := PlainText(in); got != want {
		t.Fatalf("Markdown(%q) = %q, want plain-text fallback %q", in, got, want)
	}
}

func TestInlineHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text passes through", "hello", "hello"},
		{"bold normalized", "<strong>hi</strong>", "<b>hi</b>"},
		{"italic normalized", "<em>hi</em>", "<i>hi</i>"},
		{"underline kept", "<u>hi</u>", "<u>hi</u>"},
		{"heading becomes bold block", "<h1>Hi</h1><p>Party Friday</p>", "<b>Hi</b>\n\nParty Friday"},
		{"br becomes newline", "line one<br>line two", "line one\nline two"},
		{"div becomes single newline", "<div>a</div><div>b</div>", "a\nb"},
		{"text entities escaped", "a < b & c > d", "a &lt; b &amp; c &gt; d"},
		{"spaces collapsed, newlines kept", "<p>a   b</p><p>c</p>", "a b\n\nc"},
		{"style dropped", "<style>x{}</style><b>kept</b>", "<b>kept</b>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InlineHTML(tc.in)
			if got != tc.want {
				t.Fatalf("InlineHTML(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"tags stripped", "<h1>Hi</h1><p>Party Friday</p>", "Hi Party Friday"},
		{"entities decoded", "fish &amp; chips&nbsp;&copy;", "fish & chips ©"},
		{"comments removed", "a<!-- hidden -->b", "ab"},
		{"script body removed", "x<script>var y=1;</script>z", "xz"},
		{"whitespace collapsed", "a\n\n   b\t c", "a b c"},
		{"unknown entity dropped", "a&bogus;b", "ab"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PlainText(tc.in)
			if got != tc.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestAllAndFor(t *testing.T) {
	raw := "<h1>Hi</h1><p>Party Friday</p>"
	r := All(raw)

	if got := r.For(FormatHTML); got != "<b>Hi</b>\n\nParty Friday" {
		t.Fatalf("html rendering = %q", got)
	}
	if got := r.For(FormatMarkdown); got != "Hi\nParty Friday" {
		t.Fatalf("markdown rendering = %q", got)
	}
	if got := r.For(FormatPlain); got != "Hi Party Friday" {
		t.Fatalf("plain rendering = %q", got)
	}
	// Unknown format falls back to plain.
	if got := r.For(Format("smoke")); got != r.For(FormatPlain) {
		t.Fatalf("unknown format should fall back to plain, got %q", got)
	}
}
