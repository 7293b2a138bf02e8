package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/newsfold/core"
)

const pdfFamily = "body"

var (
	sectionMarker = regexp.MustCompile(`^\*\* (\d{1,2})\. (.+) \*\*$`)
	imageMarker   = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)$`)
)

// pdfImageTypes maps file extensions to gofpdf image types. WebP has no
// gofpdf decoder and is rendered as a caption only.
var pdfImageTypes = map[string]string{
	".png":  "PNG",
	".jpg":  "JPG",
	".jpeg": "JPG",
	".gif":  "GIF",
}

// PDFRenderer lays the archive document out as A4 pages with the section
// images embedded where the transcript references them.
type PDFRenderer struct {
	// FontPath is a TrueType font with Japanese glyphs. Without it the
	// core Helvetica font is used and non-Latin text is lost.
	FontPath string
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer(fontPath string) *PDFRenderer {
	return &PDFRenderer{FontPath: fontPath}
}

// Render converts doc into PDF bytes.
func (r *PDFRenderer) Render(doc *core.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	family, tr, err := r.setupFont(pdf)
	if err != nil {
		return nil, err
	}
	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.MultiCell(0, 8, tr(doc.Subject), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(family, "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, tr("送信日時: "+doc.SentAt.Format(SentAtLayout)), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	for _, line := range strings.Split(doc.Body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			pdf.Ln(3)
		case sectionMarker.MatchString(line):
			m := sectionMarker.FindStringSubmatch(line)
			pdf.Ln(4)
			pdf.SetFont(family, "B", 13)
			pdf.MultiCell(0, 7, tr(m[1]+". "+m[2]), "", "L", false)
			pdf.Ln(2)
		case imageMarker.MatchString(line):
			m := imageMarker.FindStringSubmatch(line)
			r.image(pdf, family, tr, doc.BaseDir, m[1], m[2])
		default:
			pdf.SetFont(family, "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(line)), "", "L", false)
		}
	}

	if len(doc.Attachments) > 0 {
		pdf.AddPage()
		pdf.SetFont(family, "B", 13)
		pdf.MultiCell(0, 7, tr("添付画像"), "", "L", false)
		pdf.Ln(2)
		for _, a := range doc.Attachments {
			r.image(pdf, family, tr, doc.BaseDir, fmt.Sprintf("添付%d", a.Index), a.RelPath)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func (r *PDFRenderer) setupFont(pdf *gofpdf.Fpdf) (string, func(string) string, error) {
	if r.FontPath == "" {
		return "Helvetica", pdf.UnicodeTranslatorFromDescriptor(""), nil
	}
	font, err := os.ReadFile(r.FontPath)
	if err != nil {
		return "", nil, fmt.Errorf("reading font: %w", err)
	}
	pdf.AddUTF8FontFromBytes(pdfFamily, "", font)
	pdf.AddUTF8FontFromBytes(pdfFamily, "B", font)
	if err := pdf.Error(); err != nil {
		return "", nil, fmt.Errorf("loading font %s: %w", r.FontPath, err)
	}
	return pdfFamily, func(s string) string { return s }, nil
}

// image embeds one referenced image at the current position. Images that
// cannot be read or decoded leave a caption instead of failing the page.
func (r *PDFRenderer) image(pdf *gofpdf.Fpdf, family string, tr func(string) string, baseDir, alt, rel string) {
	caption := func() {
		pdf.SetFont(family, "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("["+alt+": "+rel+"]"), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	imageType, ok := pdfImageTypes[strings.ToLower(filepath.Ext(rel))]
	if !ok {
		caption()
		return
	}
	data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(rel)))
	if err != nil {
		caption()
		return
	}

	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(rel, opts, bytes.NewReader(data))
	if pdf.Err() || info == nil {
		pdf.ClearError()
		caption()
		return
	}

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	maxW := pageW - left - right
	w := info.Width()
	if w <= 0 || w > maxW {
		w = maxW
	}
	pdf.ImageOptions(rel, left, 0, w, 0, true, opts, 0, "")
	pdf.Ln(2)
}

var (
	boldMarks   = strings.NewReplacer("**", "", "__", "")
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	inlineLinks = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
)

// cleanInlineMarkdown strips inline Markdown formatting for PDF rendering.
func cleanInlineMarkdown(text string) string {
	text = boldMarks.Replace(text)
	text = inlineCode.ReplaceAllString(text, "$1")
	text = inlineLinks.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
