// Package manifest renders a completed crawl run's RunManifest as both a
// JSON artifact and a human-readable table, the same two views the
// original crawler's manifest summarizer script produced from its run
// logs.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kosarica/crawler/internal/types"
)

// ToJSON renders manifest as indented JSON.
func ToJSON(m types.RunManifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// WriteTable renders manifest as an aligned table to w: one row per
// retailer, with links seen, files downloaded, duplicates skipped, and
// any reason tags the run recorded.
func WriteTable(w io.Writer, m types.RunManifest) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RETAILER\tLINKS\tDOWNLOADED\tSKIPPED_DUP\tSTATUS")

	for _, r := range m.Results {
		status := "ok"
		if r.Err != nil {
			status = "error: " + r.Err.Error()
		} else if len(r.Reasons) > 0 {
			status = strings.Join(r.Reasons, ",")
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", r.RetailerSlug, r.LinksSeen, r.Downloaded, r.SkippedDuplicate, status)
	}

	fmt.Fprintf(tw, "\nduration\t%s\n", m.EndedAt.Sub(m.StartedAt))
	return tw.Flush()
}
