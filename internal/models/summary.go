package models

import "fmt"

// DatePlaceholder stands in for a date the summary does not state.
const DatePlaceholder = "JJ mois AAAA"

// Summary is the per-document summary text.
type Summary struct {
	Exhibit string
	Text    string
}

// BordereauEntry is one line of the exhibit list.
type BordereauEntry struct {
	Exhibit string
	Title   string
	Date    string
}

// ExhibitSuffix is appended to every summary.
func ExhibitSuffix(exhibit string) string {
	return fmt.Sprintf(" (Pièce nº%s)", exhibit)
}

// BatchResult is the result payload of a multi-document run.
type BatchResult struct {
	Original      string `json:"original" msgpack:"original"`
	Chronological string `json:"chronological" msgpack:"chronological"`
}

// FilePayload is the result payload of the single-document flows.
type FilePayload struct {
	Filename string `json:"filename" msgpack:"filename"`
	MIMEType string `json:"mime" msgpack:"mime"`
	Base64   string `json:"base64" msgpack:"base64"`
	Text     string `json:"text,omitempty" msgpack:"text,omitempty"`
}
