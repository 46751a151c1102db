// Package filemanager implements the adapter family for portals that sit
// behind a login form and present published files as a conventional
// web-based file manager, optionally nested under a per-retailer
// subfolder. Login is retried with backoff since these portals routinely
// rate-limit or transiently fail the first attempt under load.
package filemanager

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/kosarica/crawler/internal/adapters"
	"github.com/kosarica/crawler/internal/archive"
	"github.com/kosarica/crawler/internal/credentials"
	"github.com/kosarica/crawler/internal/datefilter"
	"github.com/kosarica/crawler/internal/download"
	"github.com/kosarica/crawler/internal/http/ratelimit"
	"github.com/kosarica/crawler/internal/types"
	"github.com/rs/zerolog/log"
)

const (
	maxLoginAttempts = 3
	loginBackoff     = 2 * time.Second
)

// Adapter logs into a file-manager portal and scrapes its listing for
// recent price file links, descending into source.Subfolder when one is
// set.
type Adapter struct {
	Credentials *credentials.Store
	Fetcher     *download.Fetcher
	MaxFileAge  time.Duration
}

// New builds a filemanager Adapter backed by the given credential store.
// maxAge bounds how old a listed file's row date may be before it is
// skipped. limiters is shared with every other adapter instance in the run
// so portals hosted behind the same domain throttle each other correctly.
func New(creds *credentials.Store, limiters *ratelimit.Registry, maxAge time.Duration) *Adapter {
	jar, _ := cookiejar.New(nil)
	return &Adapter{
		Credentials: creds,
		Fetcher:     download.NewFetcher(jar, limiters),
		MaxFileAge:  maxAge,
	}
}

// credentialKeyFor resolves which entry to look up in the credential store:
// a source's own CredentialKey when set, since a retailer's portals can
// require different logins per source, falling back to the retailer slug
// for the common case of one login shared across all of a retailer's
// sources.
func credentialKeyFor(retailerSlug string, source types.Source) string {
	if source.CredentialKey != "" {
		return source.CredentialKey
	}
	return retailerSlug
}

// fileLink is one discovered anchor, paired with the text of its enclosing
// table row so the caller can read off the listed date without a second
// page query.
type fileLink struct {
	Href    string `json:"href"`
	RowText string `json:"rowText"`
}

// Run implements adapters.Adapter.
func (a *Adapter) Run(ctx context.Context, retailerSlug string, source types.Source, seen *adapters.Seen, sink adapters.Sink) types.RetailerResult {
	result := types.RetailerResult{RetailerSlug: retailerSlug}

	credKey := credentialKeyFor(retailerSlug, source)
	pair, ok := a.Credentials.Lookup(credKey)
	if !ok {
		result.Err = fmt.Errorf("filemanager: no credentials for %s", credKey)
		return result
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := loginWithRetry(browserCtx, source.URL, pair.Username, pair.Password); err != nil {
		result.Err = fmt.Errorf("filemanager: login failed: %w", err)
		return result
	}

	listingURL := source.URL
	if source.Subfolder != "" {
		listingURL = strings.TrimRight(source.URL, "/") + "/" + strings.TrimLeft(source.Subfolder, "/")
	}

	links, err := collectFileLinks(browserCtx, listingURL)
	if err != nil {
		result.Err = fmt.Errorf("filemanager: listing %s: %w", listingURL, err)
		return result
	}

	result.LinksSeen = len(links)
	if len(links) == 0 {
		result.Reasons = append(result.Reasons, "empty_listing")
		return result
	}

	now := time.Now()
	locale := source.DateLocale
	if locale == "" {
		locale = string(datefilter.LocaleMDY)
	}

	for _, link := range links {
		t, ok := datefilter.ExtractAndParse(link.RowText, locale)
		if !ok || !datefilter.IsRecent(t, now, a.MaxFileAge) {
			result.Reasons = append(result.Reasons, fmt.Sprintf("stale_or_undated_row:%s", link.Href))
			continue
		}

		res, err := a.Fetcher.Fetch(ctx, link.Href)
		if err != nil {
			result.Reasons = append(result.Reasons, fmt.Sprintf("download_error:%s:%v", link.Href, err))
			continue
		}
		if res == nil {
			continue
		}

		hash := archive.MD5Hex(res.Content)
		normalized := adapters.NormalizedName(retailerSlug, res.Filename)
		if seen.CheckAndMark(hash, normalized) {
			result.SkippedDuplicate++
			continue
		}

		if err := sink(ctx, res.Filename, res.Content); err != nil {
			result.Reasons = append(result.Reasons, fmt.Sprintf("persist_error:%s:%v", res.Filename, err))
			continue
		}
		result.Downloaded++
	}

	return result
}

// loginWithRetry submits the login form up to maxLoginAttempts times,
// backing off linearly between attempts. The portal's own post-login
// redirect target varies by retailer, so success is judged by the login
// form disappearing rather than by URL.
func loginWithRetry(ctx context.Context, loginURL, username, password string) error {
	var lastErr error
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		err := chromedp.Run(ctx,
			chromedp.Navigate(loginURL),
			chromedp.WaitReady(`input[name="username"]`, chromedp.ByQuery),
			chromedp.SendKeys(`input[name="username"]`, username, chromedp.ByQuery),
			chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
			chromedp.Click(`button[type="submit"], input[type="submit"]`, chromedp.ByQuery),
			chromedp.Sleep(1500*time.Millisecond),
		)
		if err == nil {
			var stillOnLoginForm bool
			checkErr := chromedp.Run(ctx, chromedp.Evaluate(
				`document.querySelector('input[name="password"]') !== null`, &stillOnLoginForm))
			if checkErr == nil && !stillOnLoginForm {
				return nil
			}
			lastErr = fmt.Errorf("login form still present after submit")
		} else {
			lastErr = err
		}

		log.Warn().Int("attempt", attempt).Err(lastErr).Msg("filemanager: login attempt failed")
		if attempt < maxLoginAttempts {
			time.Sleep(time.Duration(attempt) * loginBackoff)
		}
	}
	return lastErr
}

func collectFileLinks(ctx context.Context, url string) ([]fileLink, error) {
	var links []fileLink
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(1*time.Second),
		chromedp.Evaluate(fileLinksJS(), &links),
	)
	return links, err
}

func fileLinksJS() string {
	return `(() => {
		const suffixes = ['.xml', '.gz', '.zip'];
		const seen = new Set();
		const links = [];
		document.querySelectorAll('a[href]').forEach(a => {
			const href = a.href.toLowerCase();
			if (!suffixes.some(s => href.endsWith(s) || href.includes(s + '?'))) return;
			if (seen.has(a.href)) return;
			seen.add(a.href);
			const tr = a.closest('tr');
			links.push({href: a.href, rowText: tr ? tr.innerText : ''});
		});
		return links;
	})()`
}
