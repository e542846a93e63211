// Package persist implements dedup checks, temporal filtering, redirect
// resolution, and idempotent saving of discovered items.
package persist

import (
	"regexp"
	"strings"
)

// Provider titles often carry a trailing date the page appended, e.g.
// "Spring Cleanup | January 30" or "Spring Cleanup | 2026-01-30". The
// suffix is stripped before duplicate comparison.
var (
	isoDateSuffix = regexp.MustCompile(`\s*\|\s*\d{4}-\d{2}-\d{2}\s*$`)
	wordDateSuffix = regexp.MustCompile(
		`\s*\|\s*(?:January|February|March|April|May|June|July|August|September|October|November|December)` +
			`\s+\d{1,2}(?:,\s*\d{4})?\s*$`)
)

// NormalizeTitle strips trailing "| date" suffixes and surrounding space.
func NormalizeTitle(title string) string {
	out := isoDateSuffix.ReplaceAllString(title, "")
	out = wordDateSuffix.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
