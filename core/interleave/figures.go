package interleave

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/newsfold/core"
)

// FigureName returns the file name of the n-th figure of a section.
// suffix > 0 marks a collision retry.
func FigureName(n, suffix int, ext string) string {
	if suffix == 0 {
		return fmt.Sprintf("図解%d%s", n, ext)
	}
	return fmt.Sprintf("図解%d_%d%s", n, suffix, ext)
}

// writeFigure stores data under the first free figure name in dir.
func writeFigure(store core.FileStore, dir string, n int, ext string, data []byte) (string, error) {
	for suffix := 0; ; suffix++ {
		name := FigureName(n, suffix, ext)
		err := store.CreateExclusive(filepath.Join(dir, name), data)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
}

var payloadSpace = strings.NewReplacer("\r", "", "\n", "", "\t", "", " ", "")

// decodePayload decodes a data URL payload, tolerating line wrapping and
// missing padding.
func decodePayload(payload string) ([]byte, error) {
	payload = payloadSpace.Replace(payload)
	if payload == "" {
		return nil, errors.New("empty payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("decoding base64 payload: %w", err)
}

// prefetch downloads the remote images of non-intro sections with bounded
// concurrency. Results land in their own event, so completion order never
// affects the walk.
func (iv *Interleaver) prefetch(ctx context.Context, events []event) {
	if iv.fetcher == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(iv.opts.FetchConcurrency)
	for i := range events {
		ev := &events[i]
		if ev.image == nil || ev.image.Kind != core.Remote || ev.section == core.IntroOrdinal {
			continue
		}
		g.Go(func() error {
			ev.prefetched = iv.fetchOne(gctx, ev.image.URL)
			return nil
		})
	}
	_ = g.Wait()
}

// fetchOne never fails: errors, timeouts and panics all yield nil.
func (iv *Interleaver) fetchOne(ctx context.Context, url string) (data []byte) {
	log := iv.log.WithField("url", url)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("image fetcher panicked")
			data = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, iv.opts.FetchTimeout)
	defer cancel()

	data, err := iv.fetcher.FetchImage(ctx, url)
	if err != nil {
		log.WithError(err).Info("remote image unavailable")
		return nil
	}
	log.WithFields(logrus.Fields{"bytes": len(data)}).Debug("fetched remote image")
	return data
}
