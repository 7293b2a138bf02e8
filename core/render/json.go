package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gaurav-prasanna/newsfold/core"
	"github.com/gaurav-prasanna/newsfold/core/normalize"
)

// DocumentJSON is the JSON view of an archived newsletter.
type DocumentJSON struct {
	Subject     string             `json:"subject"`
	SentAt      time.Time          `json:"sent_at"`
	DateToken   string             `json:"date_token"`
	MessageID   string             `json:"message_id,omitempty"`
	Sections    []SectionJSON      `json:"sections"`
	Images      []core.PlacedImage `json:"images"`
	Attachments []core.Attachment  `json:"attachments"`
	Body        string             `json:"body"`
}

// SectionJSON groups the text and images of one numbered section.
// Ordinal 0 holds the intro text, if any.
type SectionJSON struct {
	Ordinal int      `json:"ordinal"`
	Title   string   `json:"title,omitempty"`
	Text    string   `json:"text"`
	Images  []string `json:"images,omitempty"`
}

// JSONRenderer produces structured JSON output.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render converts doc into indented JSON.
func (r *JSONRenderer) Render(doc *core.Document) ([]byte, error) {
	out := DocumentJSON{
		Subject:     doc.Subject,
		SentAt:      doc.SentAt,
		DateToken:   doc.DateToken,
		MessageID:   doc.MessageID,
		Sections:    buildSections(doc.Transcript, doc.Body),
		Images:      doc.Images,
		Attachments: doc.Attachments,
		Body:        doc.Body,
	}
	if out.Sections == nil {
		out.Sections = []SectionJSON{}
	}
	if out.Images == nil {
		out.Images = []core.PlacedImage{}
	}
	if out.Attachments == nil {
		out.Attachments = []core.Attachment{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// buildSections regroups transcript fragments by section. A heading
// always opens a new entry, so a repeated ordinal yields two entries. The
// intro entry holds only the intro text that survived into body; it is
// left out when body starts at a heading.
func buildSections(t *core.Transcript, body string) []SectionJSON {
	if t == nil {
		return nil
	}

	var sections []SectionJSON
	var text []string
	firstHeading := ""
	flush := func() {
		if len(sections) == 0 {
			return
		}
		sections[len(sections)-1].Text = normalize.DecodeEntities(normalize.Compact(strings.Join(text, "\n\n")))
		text = nil
	}

	for _, f := range t.Fragments {
		switch f.Kind {
		case core.HeadingFragment:
			flush()
			if firstHeading == "" {
				firstHeading = normalize.DecodeEntities(f.Text)
			}
			sections = append(sections, SectionJSON{
				Ordinal: f.Section,
				Title:   normalize.DecodeEntities(headingTitle(f.Text)),
			})
		case core.TextFragment:
			if len(sections) == 0 {
				sections = append(sections, SectionJSON{Ordinal: core.IntroOrdinal})
			}
			text = append(text, f.Text)
		case core.ImageFragment:
			if len(sections) == 0 || f.Image == nil {
				continue
			}
			last := &sections[len(sections)-1]
			last.Images = append(last.Images, f.Image.RelPath)
		}
	}
	flush()

	if len(sections) > 0 && sections[0].Ordinal == core.IntroOrdinal {
		intro := introText(body, firstHeading)
		if intro == "" {
			return sections[1:]
		}
		sections[0].Text = intro
	}
	return sections
}

// introText returns the part of body before the first heading marker.
func introText(body, firstHeading string) string {
	if firstHeading == "" {
		return strings.TrimSpace(body)
	}
	idx := strings.Index(body, firstHeading)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(body[:idx])
}

// headingTitle recovers the title from a "** N. Title **" marker.
func headingTitle(marker string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(marker, "** "), " **")
	if i := strings.Index(s, ". "); i >= 0 {
		return s[i+2:]
	}
	return s
}
