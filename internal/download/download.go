// Package download fetches a discovered file's bytes over HTTP, sharing
// cookies with whatever browser session the adapter used to find it, and
// computes the content hash the orchestrator uses for deduplication.
package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/kosarica/crawler/internal/http/ratelimit"
	"github.com/rs/zerolog/log"
)

// Timeout is the maximum time allowed for a single file download, per
// the orchestrator's per-file fetch budget.
const Timeout = 90 * time.Second

// Result is the outcome of a successful fetch.
type Result struct {
	Content  []byte
	MD5Hex   string
	Filename string
}

// Fetcher performs GETs against discovered file URLs, retrying transient
// failures with the shared rate-limit/backoff config and treating 403/404
// as a soft skip rather than an error, since retailers routinely publish
// dead links for filed-but-never-uploaded dates.
type Fetcher struct {
	client   *http.Client
	limiters *ratelimit.Registry
}

// NewFetcher builds a Fetcher. jar, when non-nil, is shared with the
// browser context that discovered the URL so session cookies (needed by
// the authenticated file-manager adapter) carry over to the plain GET.
// limiters is shared across every Fetcher the caller creates: a fresh
// Fetcher gets built for every source an adapter runs, but two sources
// from different retailers sometimes resolve to the same hosting
// provider's host, and throttling that host correctly requires all of
// those Fetchers to agree on when it was last hit.
func NewFetcher(jar *cookiejar.Jar, limiters *ratelimit.Registry) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: Timeout, Jar: jar},
		limiters: limiters,
	}
}

// Fetch downloads rawURL. A nil Result with a nil error means the
// endpoint returned 403 or 404 — treat this as "nothing to download",
// not a failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error
	config := f.limiters.Config()
	limiter := f.limiters.LimiterForURL(rawURL)

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := limiter.Throttle(); err != nil {
			return nil, fmt.Errorf("download: rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("download: building request for %s: %w", rawURL, err)
		}
		req.Header.Set("User-Agent", "price-crawler/1.0")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			ratelimit.Sleep(ratelimit.CalculateBackoff(attempt, config).Milliseconds())
			continue
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			log.Debug().Str("url", rawURL).Int("status", resp.StatusCode).
				Msg("download: soft skip")
			return nil, nil
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			if attempt == config.MaxRetries {
				return nil, fmt.Errorf("download: %s returned status %d", rawURL, resp.StatusCode)
			}
			ratelimit.Sleep(ratelimit.CalculateBackoff(attempt, config).Milliseconds())
			continue
		}

		content, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("download: reading body of %s: %w", rawURL, err)
		}

		sum := md5.Sum(content)
		return &Result{
			Content:  content,
			MD5Hex:   hex.EncodeToString(sum[:]),
			Filename: filenameFor(rawURL, resp.Header.Get("Content-Disposition")),
		}, nil
	}

	return nil, fmt.Errorf("download: exhausted retries for %s: %w", rawURL, lastErr)
}

// filenameFor prefers the Content-Disposition header's filename, falling
// back to the URL's last path segment. RFC 5987's filename*= form (used
// for non-ASCII names, which some retailer portals emit for Hebrew
// filenames) is tried before the plain filename= parameter.
func filenameFor(rawURL, contentDisposition string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if v, ok := params["filename*"]; ok {
				if name := decodeRFC5987(v); name != "" {
					return name
				}
			}
			if v, ok := params["filename"]; ok && v != "" {
				return v
			}
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return rawURL
}

// decodeRFC5987 parses the "charset'lang'value" form of an extended
// parameter (RFC 5987 §3.2) and percent-decodes value.
func decodeRFC5987(raw string) string {
	parts := strings.SplitN(raw, "'", 3)
	if len(parts) != 3 {
		return ""
	}
	decoded, err := url.QueryUnescape(parts[2])
	if err != nil {
		return ""
	}
	return decoded
}
