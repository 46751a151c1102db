// Package concurrency bounds how many browser-context workers the
// orchestrator runs at once. Each chromedp browser context carries a real
// Chrome process; running one per retailer unbounded would exhaust memory
// on a modest host, so callers acquire a slot before opening a context and
// release it when the retailer's run finishes.
package concurrency

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultFanOut is the default number of concurrent browser-context
// workers when no override is configured.
const DefaultFanOut = 3

var inFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "price_crawler",
	Name:      "browser_contexts_in_flight",
	Help:      "Number of browser contexts currently open across all retailer workers.",
})

func init() {
	prometheus.MustRegister(inFlightGauge)
}

// Controller is a counting semaphore over browser-context workers.
type Controller struct {
	slots chan struct{}
}

// NewController builds a Controller allowing up to fanOut concurrent
// workers. fanOut <= 0 falls back to DefaultFanOut.
func NewController(fanOut int) *Controller {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}
	return &Controller{slots: make(chan struct{}, fanOut)}
}

// Acquire blocks until a worker slot is free or ctx is canceled. The
// returned release func must be called exactly once to free the slot.
func (c *Controller) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case c.slots <- struct{}{}:
		inFlightGauge.Inc()
		return func() {
			<-c.slots
			inFlightGauge.Dec()
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
