package normalize

import (
	"regexp"
	"strings"
)

// blankish matches lines made only of whitespace, zero-width characters,
// soft hyphens or hyphens.
var blankish = regexp.MustCompile(`^[\s\p{Zs}\x{00ad}\x{200b}\x{200c}\x{200d}\x{feff}\-]+$`)

var manyNewlines = regexp.MustCompile(`\n{3,}`)

var invisible = strings.NewReplacer("\u200b", "", "\u00ad", "", "\u00a0", " ")

// Compact tightens the layout of a transcript whose character references
// are still encoded. Whitespace-only lines (including lines of &nbsp; and
// similar) become empty, runs of empty lines collapse to one, leftover
// markup lines (starting with '<') are dropped and the result is trimmed.
// An encoded &lt; is text, not markup. Compact(Compact(s)) == Compact(s).
func Compact(text string) string {
	var out []string
	prevBlank := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		cleaned := strings.TrimSpace(invisible.Replace(DecodeEntities(line)))
		if cleaned == "" || blankish.MatchString(cleaned) {
			if !prevBlank {
				out = append(out, "")
			}
			prevBlank = true
			continue
		}
		if strings.HasPrefix(line, "<") {
			continue
		}
		out = append(out, line)
		prevBlank = false
	}
	result := strings.TrimSpace(strings.Join(out, "\n"))
	return manyNewlines.ReplaceAllString(result, "\n\n")
}
