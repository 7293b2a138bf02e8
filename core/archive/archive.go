// Package archive runs the newsletter save workflow: it selects unprocessed
// messages from a mail source, stores their attachments and section images
// under the weekly date folder, renders the document next to it and
// records the message as processed.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gaurav-prasanna/newsfold/core"
	"github.com/gaurav-prasanna/newsfold/core/extract"
	"github.com/gaurav-prasanna/newsfold/core/interleave"
	"github.com/gaurav-prasanna/newsfold/core/normalize"
	"github.com/gaurav-prasanna/newsfold/core/output"
	"github.com/gaurav-prasanna/newsfold/mail"
)

// DefaultListLimit caps how many matching messages one run looks at.
const DefaultListLimit = 20

// Deps are the collaborators of a Saver. Source and Ledger are only
// needed by Run.
type Deps struct {
	Source      core.MailSource
	Ledger      core.ProcessedSet
	Interleaver *interleave.Interleaver
	Renderer    core.Renderer
	Writer      *output.Writer
	// Prefix starts every document name, e.g. 注目AIニュース.
	Prefix string
	Logger logrus.FieldLogger
	// Out receives one progress line per written document.
	Out io.Writer
}

// Saver archives newsletters.
type Saver struct {
	source      core.MailSource
	ledger      core.ProcessedSet
	interleaver *interleave.Interleaver
	renderer    core.Renderer
	writer      *output.Writer
	extractor   *extract.HTMLExtractor
	normalizer  *normalize.MarkdownNormalizer
	prefix      string
	log         logrus.FieldLogger
	out         io.Writer
	now         func() time.Time
}

// New creates a Saver.
func New(d Deps) *Saver {
	log := d.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	out := d.Out
	if out == nil {
		out = io.Discard
	}
	return &Saver{
		source:      d.Source,
		ledger:      d.Ledger,
		interleaver: d.Interleaver,
		renderer:    d.Renderer,
		writer:      d.Writer,
		extractor:   extract.New(),
		normalizer:  normalize.New(),
		prefix:      d.Prefix,
		log:         log,
		out:         out,
		now:         time.Now,
	}
}

// RunOptions select the messages of one save run.
type RunOptions struct {
	From    string
	Subject string
	// AllowForwarded drops the sender filter.
	AllowForwarded bool
	// Day restricts the run to messages sent on that calendar day.
	Day          time.Time
	LookbackDays int
	Limit        int
	Force        bool
	DryRun       bool
}

// Summary reports what a run did.
type Summary struct {
	RunID     string
	Found     int
	Skipped   int
	Planned   int
	Saved     int
	Failed    int
	Documents []string
}

// Outcome describes one archived message.
type Outcome struct {
	Path        string
	DateToken   string
	Images      int
	Attachments int
	Document    *core.Document
}

type runIDSetter interface {
	SetRunID(id string)
}

// Query builds the mail query for opts.
func (s *Saver) Query(opts RunOptions) core.MessageQuery {
	q := core.MessageQuery{Subject: opts.Subject, Limit: opts.Limit}
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if !opts.AllowForwarded {
		q.From = opts.From
	}
	if !opts.Day.IsZero() {
		q.Since, q.Before = mail.DayWindow(opts.Day)
	} else {
		q.Since, q.Before = mail.LookbackWindow(s.now(), opts.LookbackDays)
	}
	return q
}

// Run archives every matching message that is not yet in the ledger.
// Failures of single messages are logged and counted; source and ledger
// failures abort the run.
func (s *Saver) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	if s.source == nil || s.ledger == nil {
		return nil, errors.New("archive: Run needs a mail source and a ledger")
	}

	sum := &Summary{RunID: uuid.NewString()}
	log := s.log.WithField("run_id", sum.RunID)
	if setter, ok := s.ledger.(runIDSetter); ok {
		setter.SetRunID(sum.RunID)
	}

	q := s.Query(opts)
	log.WithFields(logrus.Fields{
		"from":    q.From,
		"subject": q.Subject,
		"since":   q.Since.Format(mail.DateLayout),
	}).Info("searching mailbox")

	found, err := s.source.List(ctx, q)
	if err != nil {
		return sum, fmt.Errorf("listing messages: %w", err)
	}
	sum.Found = len(found)

	for _, m := range found {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		id := mail.ProcessedID(m.ID, m.UID)
		mlog := log.WithFields(logrus.Fields{"message_id": id, "uid": m.UID})

		if !opts.Force {
			done, err := s.ledger.Contains(ctx, id)
			if err != nil {
				return sum, fmt.Errorf("checking ledger: %w", err)
			}
			if done {
				mlog.Debug("already processed")
				sum.Skipped++
				continue
			}
		}

		sent := m.Date
		if sent.IsZero() {
			sent = s.now()
		}
		if !opts.Day.IsZero() && !mail.SameDay(sent, opts.Day) {
			mlog.WithField("date", sent.Format(time.RFC3339)).Debug("outside requested day")
			sum.Skipped++
			continue
		}

		if opts.DryRun {
			token := mail.DateToken(sent)
			fmt.Fprintf(s.out, "[dry-run] %s, images: %s/ (%s)\n",
				filepath.Base(s.writer.DocumentPath(s.prefix, token, s.renderer.Extension())), token, truncate(m.Subject, 40))
			sum.Planned++
			continue
		}

		msg, err := s.source.Fetch(ctx, m.UID)
		if err != nil {
			mlog.WithError(err).Error("fetching message failed")
			sum.Failed++
			continue
		}
		if msg.Date.IsZero() {
			msg.Date = sent
		}

		res, err := s.Archive(ctx, msg)
		if err != nil {
			mlog.WithError(err).Error("archiving message failed")
			sum.Failed++
			continue
		}
		sum.Saved++
		sum.Documents = append(sum.Documents, res.Path)

		if err := s.ledger.Add(ctx, id); err != nil {
			return sum, fmt.Errorf("recording %s: %w", id, err)
		}
		if err := s.source.MarkSeen(ctx, m.UID); err != nil {
			mlog.WithError(err).Warn("could not mark message as seen")
		}
	}

	log.WithFields(logrus.Fields{
		"found":   sum.Found,
		"saved":   sum.Saved,
		"skipped": sum.Skipped,
		"failed":  sum.Failed,
	}).Info("run finished")
	return sum, nil
}

// Archive stores one message: attachments and section images go below
// the date folder, the rendered document goes into the output folder.
func (s *Saver) Archive(ctx context.Context, msg *core.Message) (*Outcome, error) {
	token := mail.DateToken(msg.Date)
	dateDir := s.writer.DateDir(token)
	log := s.log.WithFields(logrus.Fields{"message_id": msg.ID, "date_token": token})

	doc := &core.Document{
		Subject:     msg.Subject,
		SentAt:      msg.Date,
		DateToken:   token,
		MessageID:   msg.ID,
		Attachments: s.saveAttachments(dateDir, token, msg.Attachments, log),
		BaseDir:     s.writer.OutputDir,
	}

	if msg.HTMLBody != "" {
		res, err := s.interleaver.Interleave(ctx, msg.HTMLBody, dateDir, token)
		if err != nil {
			return nil, fmt.Errorf("interleaving body: %w", err)
		}
		doc.Body = res.Body
		doc.Transcript = res.Transcript
		doc.Images = res.Images
	}
	if doc.Body == "" {
		body, err := s.fallbackBody(msg)
		if err != nil {
			return nil, err
		}
		doc.Body = body
	}

	data, err := s.renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}
	docPath, err := s.writer.WriteDocument(s.prefix, token, s.renderer.Extension(), data)
	if err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}

	out := &Outcome{
		Path:        docPath,
		DateToken:   token,
		Images:      len(doc.Images),
		Attachments: len(doc.Attachments),
		Document:    doc,
	}
	if n := out.Images + out.Attachments; n > 0 {
		fmt.Fprintf(s.out, "✓ Written: %s (images: %s/, %d files)\n", docPath, token, n)
	} else {
		fmt.Fprintf(s.out, "✓ Written: %s\n", docPath)
	}
	log.WithFields(logrus.Fields{
		"path":        docPath,
		"images":      out.Images,
		"attachments": out.Attachments,
	}).Info("document written")
	return out, nil
}

// saveAttachments writes every non-text part to the date folder as
// 添付<i><ext>. Parts that fail to write are logged and left out.
func (s *Saver) saveAttachments(dateDir, token string, parts []core.MessagePart, log logrus.FieldLogger) []core.Attachment {
	var atts []core.Attachment
	for i, part := range parts {
		if len(part.Data) == 0 {
			continue
		}
		index := i + 1
		name, err := s.writer.WriteAttachment(dateDir, index, ExtFromMIME(part.MIMEType, part.Filename), part.Data)
		if err != nil {
			log.WithError(err).WithField("index", index).Warn("skipping attachment")
			continue
		}
		atts = append(atts, core.Attachment{
			Index:    index,
			Name:     name,
			MIMEType: part.MIMEType,
			Path:     filepath.Join(dateDir, name),
			RelPath:  path.Join(token, name),
		})
	}
	return atts
}

// fallbackBody is used when the HTML body yields no transcript: the
// text/plain part if present, else the HTML reduced to Markdown.
func (s *Saver) fallbackBody(msg *core.Message) (string, error) {
	if text := strings.TrimSpace(msg.TextBody); text != "" {
		return text, nil
	}
	if msg.HTMLBody == "" {
		return "", nil
	}
	content, err := s.extractor.Extract(msg.HTMLBody)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	md, err := s.normalizer.Normalize(content)
	if err != nil {
		return "", fmt.Errorf("normalize: %w", err)
	}
	return md, nil
}

var mimeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ExtFromMIME picks the attachment extension: known image types first,
// then the original file name, then .png.
func ExtFromMIME(mimeType, filename string) string {
	if ext, ok := mimeExtensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	if ext := filepath.Ext(filename); ext != "" {
		return strings.ToLower(ext)
	}
	return ".png"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
