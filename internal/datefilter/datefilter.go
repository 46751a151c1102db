// Package datefilter parses the assorted date formats retailer file names
// and XML fields use, and decides whether a discovered file is recent
// enough to bother downloading. Retailers disagree not just on format but
// on field order: some adapters see DD/MM/YYYY, others MM/DD/YYYY, for the
// same-looking "NN/NN/YYYY" string, so callers must say which locale their
// source uses.
package datefilter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Locale picks how a two-numeral-then-numeral date string disambiguates
// day vs month when both values are <= 12.
type Locale string

const (
	LocaleDMY Locale = "dmy" // day/month/year — download-button adapter
	LocaleMDY Locale = "mdy" // month/day/year — file-manager adapter
	LocaleISO Locale = "iso" // unambiguous, locale is irrelevant — flat-link adapter
)

var (
	reCompact  = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	reISODash  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	reSlashDot = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{4})$`)
	reDashYMD  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)

	// Unanchored counterparts for pulling a date token out of a larger
	// string — a filename, a download URL, or a table row's text — rather
	// than parsing a field already known to hold nothing but a date.
	reCompactAny  = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
	reISODashAny  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	reSlashDotAny = regexp.MustCompile(`(\d{1,2})[/.](\d{1,2})[/.](\d{4})`)
	reDashYMDAny  = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)
)

// Parse tries every known format in turn and returns the first that
// matches, disambiguating ambiguous D/M vs M/D fields using locale. It
// returns ok=false rather than an error: an unparseable date is a normal
// "skip this file" outcome, not a hard failure.
func Parse(raw string, locale string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if m := reCompact.FindStringSubmatch(raw); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := reISODash.FindStringSubmatch(raw); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := reSlashDot.FindStringSubmatch(raw); m != nil {
		return fromAmbiguous(m[1], m[2], m[3], Locale(locale))
	}
	if m := reDashYMD.FindStringSubmatch(raw); m != nil {
		return fromAmbiguous(m[1], m[2], m[3], Locale(locale))
	}

	return time.Time{}, false
}

// ExtractAndParse searches raw for the first recognizable date token
// anywhere in the string and parses it the same way Parse does. Link
// discovery sees dates embedded in filenames, URLs, and table-row text
// rather than isolated date fields, so this tries the same format family
// as Parse but without anchoring to the whole string.
func ExtractAndParse(raw string, locale string) (time.Time, bool) {
	for _, m := range reCompactAny.FindAllStringSubmatch(raw, -1) {
		if t, ok := build(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	if m := reISODashAny.FindStringSubmatch(raw); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := reSlashDotAny.FindStringSubmatch(raw); m != nil {
		return fromAmbiguous(m[1], m[2], m[3], Locale(locale))
	}
	if m := reDashYMDAny.FindStringSubmatch(raw); m != nil {
		return fromAmbiguous(m[1], m[2], m[3], Locale(locale))
	}
	return time.Time{}, false
}

// fromAmbiguous resolves a NN-NN-YYYY or NN/NN/YYYY triple per locale. If
// one of the two leading numerals is > 12 it unambiguously is the day
// regardless of locale.
func fromAmbiguous(a, b, year string, locale Locale) (time.Time, bool) {
	av, aerr := strconv.Atoi(a)
	bv, berr := strconv.Atoi(b)
	if aerr != nil || berr != nil {
		return time.Time{}, false
	}

	day, month := av, bv
	switch {
	case av > 12 && bv <= 12:
		day, month = av, bv
	case bv > 12 && av <= 12:
		day, month = bv, av
	case locale == LocaleMDY:
		day, month = bv, av
	default:
		day, month = av, bv
	}

	return build(year, pad(month), pad(day))
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func build(year, month, day string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", year+"-"+month+"-"+day)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsRecent reports whether t falls within maxAge of now. Callers own the
// conservative side of the rule: a link whose date could not be extracted
// at all (Parse/ExtractAndParse returned ok=false) must be excluded, never
// defaulted to recent.
func IsRecent(t, now time.Time, maxAge time.Duration) bool {
	return now.Sub(t) <= maxAge
}
