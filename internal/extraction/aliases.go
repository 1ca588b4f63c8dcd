package extraction

import (
	"regexp"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// prayerAlias binds a prayer to the spellings it appears under in printed
// timetables, including common OCR misreads ("fair" for "fajr").
type prayerAlias struct {
	prayer  model.Prayer
	pattern *regexp.Regexp
}

// prayerAliases is ordered like model.Prayers.
var prayerAliases = []prayerAlias{
	{model.Fajr, regexp.MustCompile(`(?i)\b(fajr|fajar|fair|dawn|subh|subuh)\b`)},
	{model.Dhuhr, regexp.MustCompile(`(?i)\b(dhuhr|zuhr|dhuhar|noon|zohr)\b`)},
	{model.Asr, regexp.MustCompile(`(?i)\b(asr|aser|asar|afternoon)\b`)},
	{model.Maghrib, regexp.MustCompile(`(?i)\b(maghrib|magrib|maghreb|sunset)\b`)},
	{model.Isha, regexp.MustCompile(`(?i)\b(isha|esha|ishaa|isya|night)\b`)},
}

// countAliasHits returns how many distinct prayers are named on line.
func countAliasHits(line string) int {
	hits := 0
	for _, a := range prayerAliases {
		if a.pattern.MatchString(line) {
			hits++
		}
	}
	return hits
}

var (
	// timePattern matches "H:MM" and "HH:MM".
	timePattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

	// timeNoColonPattern matches times whose colon was lost in recognition,
	// e.g. "0510" or "530".
	timeNoColonPattern = regexp.MustCompile(`\b([0-2]?\d)([0-5]\d)\b`)

	// fullDatePattern matches day, month and year separated by slashes,
	// dashes, dots or whitespace.
	fullDatePattern = regexp.MustCompile(`\b(\d{1,2})[/\-.\s]+(\d{1,2})[/\-.\s]+(\d{2,4})\b`)

	// leadingDayPattern matches a day-of-month at the start of a row,
	// optionally after a table border.
	leadingDayPattern = regexp.MustCompile(`^\s*\|?\s*(\d{1,2})\s+`)

	yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)
)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}
