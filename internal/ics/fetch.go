package ics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appLog "webcal/internal/log"
)

// maxFeedBytes bounds a single ICS download.
const maxFeedBytes = 10 << 20

// Fetcher loads ICS payloads from http(s) URLs or local paths.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with a 15s HTTP timeout. A nil client uses
// the default.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Load reads src: an http(s) URL is downloaded, anything else is read from
// disk.
func (f *Fetcher) Load(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("ics source is empty")
	}
	if !IsURL(src) {
		return os.ReadFile(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Info("ics fetch start", "url", redactURL(src))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("ics fetch: " + resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, err
	}
	appLog.Info("ics fetch success", "url", redactURL(src), "bytes", len(body))
	return body, nil
}

// IsURL reports whether src looks like an http(s) URL.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// redactURL keeps only scheme and host so private feed tokens stay out of
// logs: https://example.com/path?token=abcd -> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redactedSuffix
}
