// Package flatlink implements the simplest adapter family: a portal page
// whose price files are plain anchor tags, optionally scattered across
// iframes, with no login and no JS-driven download button. It also
// implements the date-index variant, where files live one path segment
// below a listing of YYYY-MM-DD folders rather than directly on the page.
package flatlink

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/kosarica/crawler/internal/adapters"
	"github.com/kosarica/crawler/internal/archive"
	"github.com/kosarica/crawler/internal/datefilter"
	"github.com/kosarica/crawler/internal/download"
	"github.com/kosarica/crawler/internal/http/ratelimit"
	"github.com/kosarica/crawler/internal/types"
	"github.com/rs/zerolog/log"
)

var defaultSuffixes = []string{".xml", ".gz", ".zip"}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const maxDatesToTry = 3

// Adapter scrapes anchor links directly off a retailer's file listing
// page, downloading everything that looks like a recent price file.
type Adapter struct {
	Fetcher    *download.Fetcher
	MaxFileAge time.Duration
}

// New builds a flat-link Adapter with a fresh cookie jar shared between
// page loads and the plain-GET downloads that follow them. maxAge bounds
// how old a linked file's embedded date may be before it is skipped.
// limiters is shared with every other adapter instance in the run so
// portals hosted behind the same domain throttle each other correctly.
func New(limiters *ratelimit.Registry, maxAge time.Duration) *Adapter {
	jar, _ := cookiejar.New(nil)
	return &Adapter{Fetcher: download.NewFetcher(jar, limiters), MaxFileAge: maxAge}
}

// Run implements adapters.Adapter.
func (a *Adapter) Run(ctx context.Context, retailerSlug string, source types.Source, seen *adapters.Seen, sink adapters.Sink) types.RetailerResult {
	result := types.RetailerResult{RetailerSlug: retailerSlug}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var links []string
	var err error
	if source.DateIndex {
		links, err = a.collectDateIndexed(browserCtx, source)
	} else {
		links, err = a.collectLinks(browserCtx, source)
	}
	if err != nil {
		result.Err = fmt.Errorf("flatlink: %w", err)
		return result
	}

	result.LinksSeen = len(links)
	if len(links) == 0 {
		result.Reasons = append(result.Reasons, "no_dom_links")
		return result
	}

	for _, link := range links {
		res, err := a.Fetcher.Fetch(ctx, link)
		if err != nil {
			result.Reasons = append(result.Reasons, fmt.Sprintf("download_error:%s:%v", link, err))
			continue
		}
		if res == nil {
			continue // soft 403/404 skip
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

// collectLinks scans the main frame and every directly embedded child frame
// whose document is readable from the page (same-origin) for anchors that
// look like recent price files.
func (a *Adapter) collectLinks(ctx context.Context, source types.Source) ([]string, error) {
	var hrefs []string
	err := chromedp.Run(ctx,
		chromedp.Navigate(source.URL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(collectLinksJS(), &hrefs),
	)
	if err != nil {
		return nil, err
	}
	return dedupeSorted(filterCandidates(hrefs, source.DateLocale, a.MaxFileAge, time.Now())), nil
}

// collectDateIndexed discovers the newest date folders on a Wolt-style
// index page and tries up to maxDatesToTry of them, newest first, until
// one yields links — some dates are published as empty placeholder
// folders ahead of the actual upload.
func (a *Adapter) collectDateIndexed(ctx context.Context, source types.Source) ([]string, error) {
	var dateTexts []string
	err := chromedp.Run(ctx,
		chromedp.Navigate(source.URL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`Array.from(document.querySelectorAll('a')).map(a => a.innerText.trim())`, &dateTexts),
	)
	if err != nil {
		return nil, err
	}

	var dates []string
	for _, t := range dateTexts {
		if dateRe.MatchString(t) {
			dates = append(dates, t)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	if len(dates) == 0 {
		return nil, nil
	}

	tries := dates
	if len(tries) > maxDatesToTry {
		tries = tries[:maxDatesToTry]
	}

	for i, date := range tries {
		dateURL := strings.TrimRight(source.URL, "/") + "/" + date + "/"
		dateSource := source
		dateSource.URL = dateURL
		links, err := a.collectLinks(ctx, dateSource)
		if err != nil {
			log.Warn().Str("date", date).Err(err).Msg("flatlink: date-index navigation failed")
			continue
		}
		if len(links) > 0 {
			if i > 0 {
				log.Info().Str("date", date).Msg("flatlink: fell back past newest date")
			}
			return links, nil
		}
	}

	return nil, nil
}

// filterCandidates keeps only hrefs that look like price files and carry a
// date recent enough to be worth downloading. A href with no extractable
// date is excluded rather than assumed current, per the conservative rule
// datefilter.IsRecent documents.
func filterCandidates(hrefs []string, locale string, maxAge time.Duration, now time.Time) []string {
	out := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		lower := strings.ToLower(h)
		isCandidate := false
		for _, suffix := range defaultSuffixes {
			if strings.HasSuffix(lower, suffix) || strings.Contains(lower, suffix+"?") {
				isCandidate = true
				break
			}
		}
		if !isCandidate {
			continue
		}

		t, ok := datefilter.ExtractAndParse(h, locale)
		if !ok || !datefilter.IsRecent(t, now, maxAge) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func dedupeSorted(in []string) []string {
	set := map[string]struct{}{}
	for _, s := range in {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func collectLinksJS() string {
	return `(() => {
		const selectors = [
			"a[download]", "a[href*='download']", "a[href*='file']",
			"a[href$='.xml' i]", "a[href$='.gz' i]", "a[href$='.zip' i]",
		];
		const docs = [document];
		document.querySelectorAll("iframe, frame").forEach(f => {
			try { if (f.contentDocument) docs.push(f.contentDocument); } catch (e) {}
		});
		const hrefs = new Set();
		for (const doc of docs) {
			for (const sel of selectors) {
				doc.querySelectorAll(sel).forEach(a => { if (a.href) hrefs.add(a.href); });
			}
		}
		return Array.from(hrefs);
	})()`
}
