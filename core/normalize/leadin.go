package normalize

import "strings"

// DefaultLeadInMarkers mark where the substantive newsletter content begins:
// the author's greeting, or the first enumerated heading.
var DefaultLeadInMarkers = []string{
	"Workstyle Evolutionの池田です",
	"** 1.",
}

// LeadIn drops boilerplate before the first marker that occurs in body.
// Markers are tried in priority order; the first one present wins even if
// a later marker occurs earlier in the text. Without a match body is
// returned unchanged.
func LeadIn(body string, markers []string) string {
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if idx := strings.Index(body, marker); idx >= 0 {
			return strings.TrimSpace(body[idx:])
		}
	}
	return body
}
