// Package fetch implements the ImageFetcher interface.
// It performs HTTPS GET requests for newsletter images with a bounded
// timeout and response size.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultMaxBytes  = 20 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; newsfold/1.0)"
)

// Config configures an HTTPFetcher. Zero values select the defaults.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// AllowHTTP permits plain http:// URLs. Only tests need it.
	AllowHTTP bool
}

// HTTPFetcher fetches images via HTTP.
type HTTPFetcher struct {
	client *http.Client
	config Config
}

// New creates an HTTPFetcher with a sensible timeout.
func New(cfg Config) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	f := &HTTPFetcher{config: cfg}
	f.client = &http.Client{
		Timeout:       cfg.Timeout,
		CheckRedirect: f.checkRedirect,
	}
	return f
}

// checkRedirect applies the scheme rule to every hop.
func (f *HTTPFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return f.checkScheme(req.URL)
}

func (f *HTTPFetcher) checkScheme(u *url.URL) error {
	if u.Scheme == "https" || (f.config.AllowHTTP && u.Scheme == "http") {
		return nil
	}
	return fmt.Errorf("refusing non-https URL %s", u.Redacted())
}

// FetchImage retrieves the bytes of the image at rawURL.
func (f *HTTPFetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if err := f.checkScheme(parsed); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && strings.HasPrefix(ct, "text/html") {
		return nil, fmt.Errorf("unexpected content type %q for %s", ct, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", rawURL, f.config.MaxBytes)
	}

	return body, nil
}
