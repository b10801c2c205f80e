package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageFetcher retrieves raw product page content.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options parameterise the HTTP fetcher.
type Options struct {
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
}

// Client performs rate-limited GETs with a browser-like header set.
type Client struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// New constructs a page fetcher.
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Delay <= 0 {
		opts.Delay = 2 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch issues a single GET for url after the politeness delay. Transport
// errors and non-2xx statuses are returned as errors; callers treat both as
// a failed check.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	c.logger.Debug().Str("url", url).Int("bytes", len(body)).Msg("page fetched")
	return body, nil
}

// decodeBody unwraps the content encodings the request advertises. Setting
// Accept-Encoding ourselves disables the transport's transparent gzip
// decompression, so every advertised encoding must be handled here.
func decodeBody(raw []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, nil
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode gzip body: %w", err)
		}
		defer gz.Close()
		body, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("decode gzip body: %w", err)
		}
		return body, nil
	case "deflate":
		// Servers disagree on whether "deflate" means zlib-wrapped or raw
		// DEFLATE, so try zlib first and fall back to the raw stream.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			if body, err := io.ReadAll(zr); err == nil {
				return body, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		body, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("decode deflate body: %w", err)
		}
		return body, nil
	case "br":
		body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return nil, fmt.Errorf("decode brotli body: %w", err)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// wait applies the per-call politeness delay, honouring cancellation.
func (c *Client) wait(ctx context.Context) error {
	if c.opts.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.opts.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ PageFetcher = (*Client)(nil)
