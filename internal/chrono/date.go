// Package chrono reads French leading dates and orders summaries by them.
package chrono

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
}

var (
	initialDate = regexp.MustCompile(`^Le (\d{1,2}) (\p{L}+) (\d{4})`)
	dateLabel   = regexp.MustCompile(`^Le (\d{1,2} \p{L}+ \d{4})`)
)

// FirstLine returns the first line of the trimmed text.
func FirstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return line
}

// ParseInitialDate reads a "Le <d> <mois> <yyyy>" date at the very start of
// the first line. Unknown month names and impossible dates yield false.
func ParseInitialDate(text string) (time.Time, bool) {
	m := initialDate.FindStringSubmatch(FirstLine(text))
	if m == nil {
		return time.Time{}, false
	}
	month, ok := frenchMonths[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; reject instead.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// DateLabel returns the raw "<d> <mois> <yyyy>" from the first line, or
// false when the line does not open with one. The month is not validated.
func DateLabel(text string) (string, bool) {
	m := dateLabel.FindStringSubmatch(FirstLine(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}
