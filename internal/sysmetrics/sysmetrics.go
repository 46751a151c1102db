// Package sysmetrics logs process memory figures around the lifetime of
// each browser-context worker, so operators can correlate the
// concurrency controller's fan-out setting with the Go runtime's heap and
// total obtained memory when tuning it for a host. Process RSS is not read.
package sysmetrics

import (
	"runtime"

	"github.com/rs/zerolog/log"
)

// LogSnapshot writes the current heap and system memory figures tagged
// with label (typically the retailer slug and a lifecycle phase such as
// "context-open" or "context-close").
func LogSnapshot(label string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	log.Debug().
		Str("label", label).
		Uint64("heapAllocMB", m.HeapAlloc/1024/1024).
		Uint64("sysMB", m.Sys/1024/1024).
		Uint32("numGC", m.NumGC).
		Msg("sysmetrics: memory snapshot")
}
