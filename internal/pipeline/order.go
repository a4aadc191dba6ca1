package pipeline

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ia-avocats/backend/internal/models"
)

// SortNatural returns a copy of docs ordered by file name, comparing digit
// runs numerically so that "Piece 2" precedes "Piece 10".
func SortNatural(docs []models.Document) []models.Document {
	out := make([]models.Document, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		return NaturalLess(filepath.Base(out[i].Name), filepath.Base(out[j].Name))
	})
	return out
}

// NaturalLess compares strings case-insensitively, treating each run of
// digits as a number.
func NaturalLess(a, b string) bool {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if isDigit(ra[i]) && isDigit(rb[j]) {
			si := i
			for i < len(ra) && isDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && isDigit(rb[j]) {
				j++
			}
			na := strings.TrimLeft(string(ra[si:i]), "0")
			nb := strings.TrimLeft(string(rb[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ra[i] != rb[j] {
			return ra[i] < rb[j]
		}
		i++
		j++
	}
	return len(ra)-i < len(rb)-j
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
