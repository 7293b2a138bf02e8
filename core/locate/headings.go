// Package locate finds section headings and image tags in raw newsletter HTML.
// It works on byte offsets of the source text so that callers can merge
// headings and images back into source order.
package locate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/newsfold/core"
)

const (
	// DefaultMaxOrdinal is the highest item number the newsletter enumerates.
	DefaultMaxOrdinal = 17

	// MaxFolderTitle is the rune limit for the title part of a folder name.
	MaxFolderTitle = 28

	// FallbackTitle names a folder whose title sanitizes to nothing.
	FallbackTitle = "未分類"

	// IntroFolder is the folder name bound to the intro section.
	IntroFolder = "00_イントロ"
)

// headingRegex matches "<n>.<title>" at the start of the text or right after
// a closing '>'. The title runs up to the next '<' or newline, which is
// consumed by the match but is not part of the heading.
var headingRegex = regexp.MustCompile(`(?:^|>)[\s\p{Zs}]*([0-9]{1,2})\.[\s\p{Zs}]*([^<\n]{2,})[<\n]`)

// HeadingLocator finds numbered section headings.
type HeadingLocator struct {
	MaxOrdinal int
}

// NewHeadingLocator creates a HeadingLocator accepting ordinals 1..maxOrdinal.
// Defaults to DefaultMaxOrdinal if maxOrdinal <= 0.
func NewHeadingLocator(maxOrdinal int) *HeadingLocator {
	if maxOrdinal <= 0 {
		maxOrdinal = DefaultMaxOrdinal
	}
	return &HeadingLocator{MaxOrdinal: maxOrdinal}
}

// Locate returns the accepted headings in source order. Matches whose
// ordinal falls outside 1..MaxOrdinal are left as plain text. Titles are
// entity-decoded.
func (l *HeadingLocator) Locate(src string) []core.Section {
	var sections []core.Section
	for _, m := range headingRegex.FindAllStringSubmatchIndex(src, -1) {
		num, err := strconv.Atoi(src[m[2]:m[3]])
		if err != nil || num < 1 || num > l.MaxOrdinal {
			continue
		}
		title := strings.TrimSpace(html.UnescapeString(src[m[4]:m[5]]))
		sections = append(sections, core.Section{
			Ordinal: num,
			Title:   title,
			Folder:  FolderName(num, title),
			Start:   m[0],
			End:     m[5],
		})
	}
	return sections
}

// FolderName builds "<NN>_<sanitized title>".
func FolderName(ordinal int, title string) string {
	return fmt.Sprintf("%02d_%s", ordinal, SanitizeTitle(title))
}

var (
	illegalChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	spaceRuns    = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// SanitizeTitle makes title safe for use as a folder name and as part of a
// Markdown link target.
func SanitizeTitle(title string) string {
	s := illegalChars.ReplaceAllString(title, "_")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".")
	s = spaceRuns.ReplaceAllString(s, "_")
	s = truncateRunes(s, MaxFolderTitle)
	if s == "" {
		return FallbackTitle
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
