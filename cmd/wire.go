package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/gaurav-prasanna/newsfold/config"
	"github.com/gaurav-prasanna/newsfold/core"
	"github.com/gaurav-prasanna/newsfold/core/archive"
	"github.com/gaurav-prasanna/newsfold/core/fetch"
	"github.com/gaurav-prasanna/newsfold/core/interleave"
	"github.com/gaurav-prasanna/newsfold/core/output"
	"github.com/gaurav-prasanna/newsfold/core/render"
	"github.com/gaurav-prasanna/newsfold/credential"
	"github.com/gaurav-prasanna/newsfold/mail"
)

// selectRenderer creates the Renderer named by render.format.
func selectRenderer(c *config.Config) (core.Renderer, error) {
	switch c.Render.Format {
	case "", "markdown":
		return render.NewMarkdownRenderer(), nil
	case "json":
		return render.NewJSONRenderer(), nil
	case "pdf":
		return render.NewPDFRenderer(c.Render.PDFFont), nil
	default:
		return nil, fmt.Errorf("unknown format %q: want markdown, json or pdf", c.Render.Format)
	}
}

// newSaver wires the archive pipeline. source and ledger may be nil for
// single-file conversion.
func newSaver(c *config.Config, source core.MailSource, processed core.ProcessedSet) (*archive.Saver, error) {
	renderer, err := selectRenderer(c)
	if err != nil {
		return nil, err
	}
	writer, err := output.New(c.SavePath)
	if err != nil {
		return nil, fmt.Errorf("initializing output writer: %w", err)
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:   c.Fetch.Timeout,
		MaxBytes:  c.Fetch.MaxBytes,
		UserAgent: c.Fetch.UserAgent,
	})
	iv := interleave.New(fetcher, writer, interleave.Options{
		MaxOrdinal:       c.MaxOrdinal,
		LeadInMarkers:    c.LeadInMarkers,
		FetchTimeout:     c.Fetch.Timeout,
		FetchConcurrency: c.Fetch.Concurrency,
		Logger:           logger,
	})

	return archive.New(archive.Deps{
		Source:      source,
		Ledger:      processed,
		Interleaver: iv,
		Renderer:    renderer,
		Writer:      writer,
		Prefix:      c.DocumentPrefix,
		Logger:      logger,
		Out:         os.Stdout,
	}), nil
}

// openMailbox builds the IMAP source. The password comes from the
// configuration or, failing that, the keyring.
func openMailbox(c *config.Config) (*mail.IMAPSource, error) {
	password := c.IMAP.Password
	if password == "" {
		store, err := credential.Open()
		if err != nil {
			return nil, err
		}
		password, err = store.Password(c.IMAP.Host, c.IMAP.Username)
		if errors.Is(err, credential.ErrNotFound) {
			return nil, fmt.Errorf("no IMAP password for %s: set imap.password or run `newsfold login`", c.IMAP.Username)
		}
		if err != nil {
			return nil, err
		}
	}

	return mail.NewIMAPSource(mail.Config{
		Host:     c.IMAP.Host,
		Port:     c.IMAP.Port,
		Username: c.IMAP.Username,
		Password: password,
		TLS:      c.IMAP.TLS,
		Mailbox:  c.IMAP.Mailbox,
	}, logger), nil
}
