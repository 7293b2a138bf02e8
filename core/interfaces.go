// Package core defines the data model and collaborator interfaces for newsfold.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"strings"
	"time"
)

// IntroOrdinal is the implicit section for content before the first heading.
const IntroOrdinal = 0

// Section is a numbered heading found in the source HTML.
type Section struct {
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
	Folder  string `json:"folder"`
	Start   int    `json:"-"`
	End     int    `json:"-"`
}

// ImageKind distinguishes inline base64 images from remote ones.
type ImageKind int

const (
	// Embedded images carry a data:image/...;base64 payload.
	Embedded ImageKind = iota
	// Remote images point at an https:// URL.
	Remote
)

func (k ImageKind) String() string {
	if k == Remote {
		return "remote"
	}
	return "embedded"
}

// ImageRef is an <img> tag recognized in the source HTML.
// Start and End are byte offsets and are used only for ordering.
type ImageRef struct {
	Kind    ImageKind
	Subtype string // Embedded only, e.g. "png"
	Payload string // Embedded only, base64 text
	URL     string // Remote only, entity-unescaped
	Ext     string // output file extension including the dot
	Start   int
	End     int
}

// PlacedImage is an image attributed to a section and written to disk.
type PlacedImage struct {
	Section int    `json:"section"`
	Folder  string `json:"folder"`
	N       int    `json:"n"`
	Name    string `json:"name"`
	Path    string `json:"-"`    // absolute or destination-rooted path on disk
	RelPath string `json:"path"` // reference used in the transcript
}

// FragmentKind identifies what a transcript fragment holds.
type FragmentKind int

const (
	TextFragment FragmentKind = iota
	HeadingFragment
	ImageFragment
)

// Fragment is one piece of a transcript, in source order. Text keeps HTML
// character references encoded, as in the source.
type Fragment struct {
	Kind    FragmentKind
	Text    string
	Section int
	Image   *PlacedImage
}

// Transcript is the ordered sequence of fragments reconstructed from the HTML.
type Transcript struct {
	Fragments []Fragment
}

// String joins the fragments with blank lines.
func (t *Transcript) String() string {
	parts := make([]string, 0, len(t.Fragments))
	for _, f := range t.Fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Attachment is a MIME part saved next to the section folders.
type Attachment struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Path     string `json:"-"`
	RelPath  string `json:"path"`
}

// Document is a fully processed newsletter, ready to render.
type Document struct {
	Subject     string        `json:"subject"`
	SentAt      time.Time     `json:"sent_at"`
	DateToken   string        `json:"date_token"`
	MessageID   string        `json:"message_id,omitempty"`
	Body        string        `json:"body"`
	Transcript  *Transcript   `json:"-"`
	Images      []PlacedImage `json:"images"`
	Attachments []Attachment  `json:"attachments"`
	// BaseDir is the folder relative paths are resolved against.
	BaseDir string `json:"-"`
}

// Message is a raw newsletter as delivered by a MailSource.
type Message struct {
	ID          string
	UID         uint32
	Subject     string
	From        string
	Date        time.Time
	HTMLBody    string
	TextBody    string
	Attachments []MessagePart
}

// MessagePart is a non-text MIME part (attachment or inline image).
type MessagePart struct {
	Filename  string
	ContentID string
	MIMEType  string
	Data      []byte
}

// MessageQuery selects messages from a MailSource.
type MessageQuery struct {
	From    string // empty matches any sender
	Subject string
	Since   time.Time
	Before  time.Time // zero means no upper bound
	Limit   int
}

// MessageSummary is the envelope view used for listings.
type MessageSummary struct {
	ID      string
	UID     uint32
	Subject string
	From    string
	Date    time.Time
}

// MailSource supplies newsletter messages.
type MailSource interface {
	List(ctx context.Context, q MessageQuery) ([]MessageSummary, error)
	Fetch(ctx context.Context, uid uint32) (*Message, error)
	MarkSeen(ctx context.Context, uid uint32) error
}

// ImageFetcher resolves a remote image URL to its bytes.
// Any error means the image is unavailable.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// FileStore is the filesystem surface the interleaver writes through.
type FileStore interface {
	// MkdirAll creates dir and its parents if absent.
	MkdirAll(dir string) error
	// CreateExclusive writes data to a new file at path. It returns an
	// error satisfying errors.Is(err, fs.ErrExist) when path is taken.
	CreateExclusive(path string, data []byte) error
}

// ProcessedSet tracks which messages were already saved.
type ProcessedSet interface {
	Contains(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, id string) error
}

// Renderer converts a Document into a final output format.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
