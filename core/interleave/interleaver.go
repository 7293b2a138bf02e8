// Package interleave rebuilds a newsletter HTML body into a sectioned
// transcript. Headings and images are merged by byte offset, images are
// routed into per-section folders, and each saved image is referenced from
// the transcript at the position it had in the source.
package interleave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gaurav-prasanna/newsfold/core"
	"github.com/gaurav-prasanna/newsfold/core/locate"
	"github.com/gaurav-prasanna/newsfold/core/normalize"
)

const (
	defaultFetchTimeout     = 15 * time.Second
	defaultFetchConcurrency = 4
)

// ErrNoDestination is returned when Interleave is called without a folder.
var ErrNoDestination = errors.New("interleave: destination folder is required")

// Options tunes an Interleaver. Zero values select the defaults.
type Options struct {
	// MaxOrdinal is the highest accepted heading number.
	MaxOrdinal int
	// LeadInMarkers overrides normalize.DefaultLeadInMarkers when non-nil.
	LeadInMarkers []string
	// FetchTimeout bounds each remote image fetch.
	FetchTimeout time.Duration
	// FetchConcurrency bounds parallel remote fetches.
	FetchConcurrency int
	Logger           logrus.FieldLogger
}

// Interleaver turns one HTML body at a time into a Result.
// It holds no per-document state and may be reused.
type Interleaver struct {
	headings *locate.HeadingLocator
	fetcher  core.ImageFetcher
	store    core.FileStore
	opts     Options
	log      logrus.FieldLogger
}

// Result is the outcome of one Interleave call.
type Result struct {
	Transcript *core.Transcript
	// Body is the compacted, entity-decoded and lead-in trimmed transcript.
	Body   string
	Images []core.PlacedImage
	// Saved counts images actually written.
	Saved int
}

// New creates an Interleaver. fetcher may be nil, in which case every
// remote image is treated as unavailable.
func New(fetcher core.ImageFetcher, store core.FileStore, opts Options) *Interleaver {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = defaultFetchConcurrency
	}
	if opts.LeadInMarkers == nil {
		opts.LeadInMarkers = normalize.DefaultLeadInMarkers
	}
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Interleaver{
		headings: locate.NewHeadingLocator(opts.MaxOrdinal),
		fetcher:  fetcher,
		store:    store,
		opts:     opts,
		log:      log,
	}
}

// event is a heading or an image at a source offset.
type event struct {
	start   int
	heading *core.Section
	image   *core.ImageRef
	// section is the active ordinal when the image is reached.
	section int
	// prefetched holds remote image bytes; nil means unavailable.
	prefetched []byte
}

// Interleave processes src, writing section images below destDir and
// referencing them as refPrefix/<folder>/<file>. It fails only when
// destDir is empty; all per-image problems are absorbed.
func (iv *Interleaver) Interleave(ctx context.Context, src, destDir, refPrefix string) (*Result, error) {
	if destDir == "" {
		return nil, ErrNoDestination
	}
	res := &Result{Transcript: &core.Transcript{}}
	if src == "" {
		return res, nil
	}

	src = normalize.StripStyleAndScript(src)
	events := iv.plan(src)
	iv.prefetch(ctx, events)

	w := newWalk(iv, src, destDir, refPrefix)
	for i := range events {
		w.flush(events[i].start)
		if events[i].heading != nil {
			w.heading(events[i].heading)
			continue
		}
		w.image(&events[i])
	}
	w.flush(len(src))

	res.Transcript = w.transcript
	res.Images = w.placed
	res.Saved = len(w.placed)
	body := normalize.DecodeEntities(normalize.Compact(w.transcript.String()))
	res.Body = normalize.LeadIn(body, iv.opts.LeadInMarkers)

	iv.log.WithFields(logrus.Fields{
		"headings": len(w.seen),
		"images":   res.Saved,
	}).Debug("interleaved document")
	return res, nil
}

// plan merges headings and images into one offset-ordered stream and records
// the section each image belongs to. Headings sort before images at equal
// offsets.
func (iv *Interleaver) plan(src string) []event {
	sections := iv.headings.Locate(src)
	images := locate.Images(src)

	events := make([]event, 0, len(sections)+len(images))
	for i := range sections {
		events = append(events, event{start: sections[i].Start, heading: &sections[i]})
	}
	for i := range images {
		events = append(events, event{start: images[i].Start, image: &images[i]})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].start < events[j].start
	})

	active := core.IntroOrdinal
	for i := range events {
		if events[i].heading != nil {
			active = events[i].heading.Ordinal
			continue
		}
		events[i].section = active
	}
	return events
}

// walk is the per-document state of the emit pass.
type walk struct {
	iv         *Interleaver
	src        string
	destDir    string
	refPrefix  string
	cursor     int
	active     int
	folders    map[int]string
	counters   map[int]int
	seen       []core.Section
	placed     []core.PlacedImage
	transcript *core.Transcript
}

func newWalk(iv *Interleaver, src, destDir, refPrefix string) *walk {
	return &walk{
		iv:         iv,
		src:        src,
		destDir:    destDir,
		refPrefix:  refPrefix,
		active:     core.IntroOrdinal,
		folders:    map[int]string{core.IntroOrdinal: locate.IntroFolder},
		counters:   make(map[int]int),
		transcript: &core.Transcript{},
	}
}

// flush appends the text between the cursor and end.
func (w *walk) flush(end int) {
	if end <= w.cursor {
		return
	}
	text := normalize.MarkupToText(w.src[w.cursor:end])
	if text != "" {
		w.transcript.Fragments = append(w.transcript.Fragments, core.Fragment{
			Kind:    core.TextFragment,
			Text:    text,
			Section: w.active,
		})
	}
	w.cursor = end
}

func (w *walk) advance(end int) {
	if end > w.cursor {
		w.cursor = end
	}
}

// heading binds the section folder from here on. A repeated ordinal
// replaces the folder binding but keeps its counter.
func (w *walk) heading(s *core.Section) {
	w.folders[s.Ordinal] = s.Folder
	w.active = s.Ordinal
	w.seen = append(w.seen, *s)
	w.transcript.Fragments = append(w.transcript.Fragments, core.Fragment{
		Kind:    core.HeadingFragment,
		Text:    fmt.Sprintf("** %d. %s **", s.Ordinal, normalize.EncodeEntities(s.Title)),
		Section: s.Ordinal,
	})
	w.advance(s.End)
}

// image persists one image of the active section. Intro images and images
// whose bytes cannot be obtained are skipped without side effects.
func (w *walk) image(ev *event) {
	defer w.advance(ev.image.End)
	if ev.section == core.IntroOrdinal {
		return
	}

	log := w.iv.log.WithFields(logrus.Fields{
		"section": ev.section,
		"kind":    ev.image.Kind.String(),
	})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("skipping image after unexpected failure")
		}
	}()

	var data []byte
	switch ev.image.Kind {
	case core.Embedded:
		decoded, err := decodePayload(ev.image.Payload)
		if err != nil {
			log.WithError(err).Warn("skipping undecodable embedded image")
			return
		}
		data = decoded
	case core.Remote:
		data = ev.prefetched
	}
	if len(data) == 0 {
		log.WithField("url", ev.image.URL).Debug("image unavailable")
		return
	}

	folder := w.folders[ev.section]
	dir := filepath.Join(w.destDir, folder)
	if err := w.iv.store.MkdirAll(dir); err != nil {
		log.WithError(err).WithField("path", dir).Warn("skipping image: cannot create folder")
		return
	}

	n := w.counters[ev.section] + 1
	name, err := writeFigure(w.iv.store, dir, n, ev.image.Ext, data)
	if err != nil {
		log.WithError(err).WithField("path", dir).Warn("skipping image: write failed")
		return
	}
	w.counters[ev.section] = n

	placed := core.PlacedImage{
		Section: ev.section,
		Folder:  folder,
		N:       n,
		Name:    name,
		Path:    filepath.Join(dir, name),
		RelPath: path.Join(w.refPrefix, folder, name),
	}
	w.placed = append(w.placed, placed)
	w.transcript.Fragments = append(w.transcript.Fragments, core.Fragment{
		Kind:    core.ImageFragment,
		Text:    fmt.Sprintf("![図解](%s)", normalize.EncodeEntities(placed.RelPath)),
		Section: ev.section,
		Image:   &placed,
	})
}
