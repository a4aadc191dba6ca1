package models

// Classification is the content label of a page.
type Classification string

const (
	ClassText  Classification = "TEXT"
	ClassImage Classification = "IMAGE"
	ClassSkip  Classification = "SKIP"
)

// ParseClassification accepts only the three known labels.
func ParseClassification(s string) (Classification, bool) {
	switch Classification(s) {
	case ClassText, ClassImage, ClassSkip:
		return Classification(s), true
	}
	return "", false
}

// Page is one rendered unit of a document. Data holds a standalone
// single-page file (PDF or image) that vision models accept inline.
type Page struct {
	Exhibit  string
	Index    int
	Data     []byte
	MIMEType string
	Text     string
}
