// Package normalize holds the pure text passes of the pipeline: markup
// flattening, layout compaction, lead-in trimming, and the HTML-to-Markdown
// conversion used when a message yields no sectioned transcript.
package normalize

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// MarkdownNormalizer renders a newsletter without numbered sections as
// compacted Markdown. Layout tables are flattened to their text.
type MarkdownNormalizer struct {
	conv *converter.Converter
}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Normalize converts a cleaned HTML fragment into compacted Markdown. When
// the converter fails or yields nothing, the fragment is flattened with
// MarkupToText instead.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	md, err := n.conv.ConvertString(html)
	if err != nil || strings.TrimSpace(md) == "" {
		return DecodeEntities(Compact(MarkupToText(html))), nil
	}
	return Compact(strings.TrimSpace(md)), nil
}
