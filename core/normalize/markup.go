package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	styleBlock  = regexp.MustCompile(`(?i)<style[^>]*>[\s\S]*?</style>`)
	scriptBlock = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>`)
	lineBreak   = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraClose   = regexp.MustCompile(`(?i)</p>`)
	anyTag      = regexp.MustCompile(`<[^>]+>`)
	newlineRuns = regexp.MustCompile(`\n+`)
)

// StripStyleAndScript replaces <style> and <script> blocks with a newline.
func StripStyleAndScript(src string) string {
	src = styleBlock.ReplaceAllString(src, "\n")
	return scriptBlock.ReplaceAllString(src, "\n")
}

// MarkupToText turns an HTML fragment into plain text: line and paragraph
// breaks become newlines, every other tag becomes a newline and newline
// runs collapse to one. Character references are kept; decode them with
// DecodeEntities once the text has been compacted.
func MarkupToText(fragment string) string {
	s := lineBreak.ReplaceAllString(fragment, "\n")
	s = paraClose.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "\n")
	s = newlineRuns.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// EncodeEntities escapes text so that it can sit between MarkupToText
// output. DecodeEntities(EncodeEntities(s)) == s.
func EncodeEntities(s string) string {
	return html.EscapeString(s)
}

// DecodeEntities resolves HTML character references such as &amp; and
// &#12354;.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}
