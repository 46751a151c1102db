package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kosarica/crawler/internal/types"
)

func sampleManifest() types.RunManifest {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.RunManifest{
		StartedAt: start,
		EndedAt:   start.Add(90 * time.Second),
		Results: []types.RetailerResult{
			{RetailerSlug: "shufersal", LinksSeen: 10, Downloaded: 9, SkippedDuplicate: 1},
			{RetailerSlug: "victory", LinksSeen: 5, Downloaded: 0, Err: errors.New("login failed")},
			{RetailerSlug: "rami-levy", LinksSeen: 0, Reasons: []string{"no_dom_links"}},
		},
	}
}

func TestToJSONRoundTrips(t *testing.T) {
	m := sampleManifest()
	data, err := ToJSON(m)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding rendered JSON: %v", err)
	}
	results, ok := decoded["Results"].([]any)
	if !ok || len(results) != 3 {
		t.Fatalf("Results = %v, want 3 entries", decoded["Results"])
	}
}

func TestWriteTableIncludesEveryRetailerAndStatus(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sampleManifest()); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"shufersal", "victory", "rami-levy", "error: login failed", "no_dom_links", "duration"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTableReportsOkWhenNoReasonsOrError(t *testing.T) {
	var buf bytes.Buffer
	m := types.RunManifest{Results: []types.RetailerResult{{RetailerSlug: "shufersal", Downloaded: 3}}}
	if err := WriteTable(&buf, m); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if !strings.Contains(buf.String(), "ok") {
		t.Errorf("expected status column to read ok, got:\n%s", buf.String())
	}
}
