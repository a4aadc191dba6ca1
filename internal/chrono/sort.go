package chrono

import (
	"sort"
	"strings"
	"time"
)

// Separator delimits summaries in combined text.
const Separator = "\n\n------\n\n"

// Join combines summaries with Separator.
func Join(summaries []string) string {
	return strings.Join(summaries, Separator)
}

// Split cuts combined text into trimmed summaries. The leading blank line of
// the separator is optional so that hand-edited text still splits.
func Split(combined string) []string {
	parts := strings.Split(combined, strings.TrimLeft(Separator, "\n"))
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

type dated struct {
	at   time.Time
	text string
}

// SortSummaries orders the summaries of combined by their leading date.
// Dated summaries come first in ascending order, ties keep their relative
// order, undated ones follow in input order.
func SortSummaries(combined string) string {
	var withDate []dated
	var undated []string

	for _, s := range Split(combined) {
		if at, ok := ParseInitialDate(s); ok {
			withDate = append(withDate, dated{at: at, text: s})
		} else {
			undated = append(undated, s)
		}
	}

	sort.SliceStable(withDate, func(i, j int) bool {
		return withDate[i].at.Before(withDate[j].at)
	})

	out := make([]string, 0, len(withDate)+len(undated))
	for _, d := range withDate {
		out = append(out, d.text)
	}
	out = append(out, undated...)
	return Join(out)
}
