// Package render turns an archived newsletter into its output format.
// Markdown is the archive's native format; JSON and PDF are derived views.
package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/newsfold/core"
)

// SentAtLayout formats the send time in the document header.
const SentAtLayout = "2006/01/02 15:04"

// MarkdownRenderer writes the archive document:
//
//	# <subject>
//
//	**送信日時**: 2026/02/03 09:30
//
//	---
//
//	<body>
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render builds the Markdown document. Saved attachments are listed in a
// trailing section.
func (r *MarkdownRenderer) Render(doc *core.Document) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Subject)
	fmt.Fprintf(&b, "**送信日時**: %s\n\n", doc.SentAt.Format(SentAtLayout))
	b.WriteString("---\n\n")
	b.WriteString(doc.Body)
	b.WriteString("\n")

	if refs := AttachmentRefs(doc.Attachments); len(refs) > 0 {
		b.WriteString("\n\n---\n\n## 添付画像\n\n")
		b.WriteString(strings.Join(refs, "\n\n"))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// AttachmentRefs returns one image reference per attachment.
func AttachmentRefs(atts []core.Attachment) []string {
	refs := make([]string, 0, len(atts))
	for _, a := range atts {
		refs = append(refs, fmt.Sprintf("![添付%d](%s)", a.Index, a.RelPath))
	}
	return refs
}
