package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kosarica/crawler/config"
	"github.com/kosarica/crawler/internal/types"
	"github.com/rs/zerolog/log"
)

// Runner runs a crawl for a retailer selector and returns the resulting
// manifest. Injected so the HTTP trigger and the CLI share one
// orchestration entrypoint.
type Runner func(ctx context.Context, selector string) (types.RunManifest, error)

var crawlSem = make(chan struct{}, 1)

// CrawlTrigger returns a gin handler for POST /internal/admin/crawl/:selector.
// It is a thin wrapper: the orchestration itself lives in the crawl
// package and runs identically whether invoked from here or from `cmd/cli
// run`. Only one crawl runs at a time; a second trigger while one is in
// flight is rejected rather than queued.
func CrawlTrigger(run Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		selector := c.Param("selector")
		if selector == "" {
			selector = "all"
		}

		select {
		case crawlSem <- struct{}{}:
		default:
			c.JSON(http.StatusConflict, gin.H{"error": "a crawl is already running"})
			return
		}

		go func() {
			defer func() { <-crawlSem }()
			manifest, err := run(context.Background(), selector)
			if err != nil {
				log.Error().Err(err).Str("selector", selector).Msg("crawl trigger failed")
				return
			}
			log.Info().Str("selector", selector).Int("retailers", len(manifest.Results)).
				Msg("crawl trigger completed")
		}()

		c.JSON(http.StatusAccepted, gin.H{
			"status":   "started",
			"selector": selector,
		})
	}
}

// ValidSelector reports whether selector names a configured retailer slug
// or one of the reserved group selectors, to fail fast on an obvious typo
// instead of silently crawling nothing.
func ValidSelector(selector string, cfg *config.Config) bool {
	switch selector {
	case "all", "public-only", "credentialed-only":
		return true
	}
	for _, r := range cfg.Retailers {
		if r.Slug == selector {
			return true
		}
	}
	return false
}
