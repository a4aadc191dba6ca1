// Package bordereau renders the exhibit list appended to the summaries.
package bordereau

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ia-avocats/backend/internal/chrono"
	"github.com/ia-avocats/backend/internal/models"
)

// Header opens the exhibit list.
const Header = "BORDEREAU DE PIECES COMMUNIQUEES"

// Rule separates the summaries from the exhibit list in the final text.
var Rule = strings.Repeat("=", 50)

// NewEntry builds an entry whose date is read from the first line of the
// document's summary, falling back to the placeholder.
func NewEntry(exhibit, title, summary string) models.BordereauEntry {
	date, ok := chrono.DateLabel(summary)
	if !ok {
		date = models.DatePlaceholder
	}
	return models.BordereauEntry{
		Exhibit: exhibit,
		Title:   strings.TrimSpace(title),
		Date:    date,
	}
}

// Line formats one entry as "<num> - <title> - du <date>".
func Line(e models.BordereauEntry) string {
	date := e.Date
	if date == "" {
		date = models.DatePlaceholder
	}
	return fmt.Sprintf("%s - %s - du %s", e.Exhibit, e.Title, date)
}

// Section renders the header and one line per entry, in the given order.
func Section(entries []models.BordereauEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = Line(e) + "\n"
	}
	return Header + "\n\n" + strings.Join(lines, "\n")
}

// Attach appends the exhibit list to a block of summaries.
func Attach(summaries string, entries []models.BordereauEntry) string {
	return summaries + "\n\n" + Rule + "\n\n" + Section(entries)
}

var witnessTitle = regexp.MustCompile(`^(Attestation[^\n]*?\b(?:de|d'|du)\s*)(Monsieur|Madame|M\.|Mme)\s+([\p{L}'\- ]+?)\s*$`)

// NormalizeTitle tidies a generated title. For witness statements naming
// the witness it keeps the honorific and upper-cases the surname, which is
// taken to be the last word. Titles that do not match are returned trimmed.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "\"«» ")
	m := witnessTitle.FindStringSubmatch(title)
	if m == nil {
		return title
	}
	words := strings.Fields(m[3])
	surname := strings.ToUpper(words[len(words)-1])
	return m[1] + m[2] + " " + surname
}
