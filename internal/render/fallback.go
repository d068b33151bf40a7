package render

import (
	"regexp"
	"strings"
)

// PlainText is the last-resort rendering: strip everything that looks like
// markup and hand back whitespace-normalized text. It is used directly for
// plain-text channels and as the degradation path of the richer renderers,
// so it must cope with arbitrarily broken input.
func PlainText(raw string) string {
	s := commentRe.ReplaceAllString(raw, "")
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, " ")
	s = decodeEntities(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var (
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	scriptRe  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	tagRe     = regexp.MustCompile(`<[^<>]*>`)
	entityRe  = regexp.MustCompile(`&#?[0-9a-zA-Z]+;`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// namedEntities is the small fixed set we decode to a replacement; every
// other named or numeric entity decodes to nothing.
var namedEntities = map[string]string{
	"&nbsp;":  " ",
	"&amp;":   "&",
	"&lt;":    "<",
	"&gt;":    ">",
	"&quot;":  `"`,
	"&#39;":   "'",
	"&apos;":  "'",
	"&copy;":  "©",
	"&reg;":   "®",
	"&trade;": "™",
}

func decodeEntities(s string) string {
	return entityRe.ReplaceAllStringFunc(s, func(e string) string {
		if r, ok := namedEntities[strings.ToLower(e)]; ok {
			return r
		}
		return ""
	})
}
