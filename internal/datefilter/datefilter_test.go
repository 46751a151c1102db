package datefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnambiguousFormats(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		locale string
		want   string // 2006-01-02
	}{
		{"compact", "20260115", string(LocaleISO), "2026-01-15"},
		{"iso dash", "2026-01-15", string(LocaleISO), "2026-01-15"},
		{"iso dash with trailing time", "2026-01-15T10:00:00Z", string(LocaleISO), "2026-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.raw, tt.locale)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseAmbiguousFieldOrderResolvedByLocale(t *testing.T) {
	// 05/07/2026 is ambiguous: DMY reads it as 5 July, MDY reads it as 7 May.
	dmy, ok := Parse("05/07/2026", string(LocaleDMY))
	require.True(t, ok)
	assert.Equal(t, "2026-07-05", dmy.Format("2006-01-02"))

	mdy, ok := Parse("05/07/2026", string(LocaleMDY))
	require.True(t, ok)
	assert.Equal(t, "2026-05-07", mdy.Format("2006-01-02"))
}

func TestParseOverflowNumeralOverridesLocale(t *testing.T) {
	// 25 can't be a month, so it must be the day even under MDY.
	got, ok := Parse("25/07/2026", string(LocaleMDY))
	require.True(t, ok)
	assert.Equal(t, "2026-07-25", got.Format("2006-01-02"))
}

func TestParseDashSeparatedAmbiguous(t *testing.T) {
	got, ok := Parse("9-3-2026", string(LocaleDMY))
	require.True(t, ok)
	assert.Equal(t, "2026-03-09", got.Format("2006-01-02"))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, ok := Parse("not-a-date", string(LocaleISO))
	assert.False(t, ok)

	_, ok = Parse("", string(LocaleISO))
	assert.False(t, ok)
}

func TestIsRecent(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsRecent(now.Add(-24*time.Hour), now, 48*time.Hour))
	assert.False(t, IsRecent(now.Add(-72*time.Hour), now, 48*time.Hour))
}
