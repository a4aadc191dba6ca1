package models

import (
	"path/filepath"
	"regexp"
	"strings"
)

// MIME types accepted for upload.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDOC  = "application/msword"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEText = "text/plain; charset=utf-8"
)

// UnknownExhibit is used when a file name carries no digit.
const UnknownExhibit = "X"

var exhibitPattern = regexp.MustCompile(`^\D*(\d+)`)

// Document is an uploaded file. It is never mutated after ingestion.
type Document struct {
	Name     string
	Data     []byte
	MIMEType string
	Exhibit  string
}

// NewDocument builds a Document, deriving the MIME type from the extension
// when none is given and the exhibit number from the name.
func NewDocument(name string, data []byte, mimeType string) Document {
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = MIMETypeForName(name)
	}
	return Document{
		Name:     name,
		Data:     data,
		MIMEType: mimeType,
		Exhibit:  ExhibitNumber(name),
	}
}

// Info returns the metadata reported to callers after upload.
func (d Document) Info() FileInfo {
	return FileInfo{
		Name:     d.Name,
		Size:     int64(len(d.Data)),
		MIMEType: d.MIMEType,
		Exhibit:  d.Exhibit,
	}
}

// BaseName is the file name without directory or extension.
func (d Document) BaseName() string {
	base := filepath.Base(d.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool {
	return d.MIMEType == MIMEPDF
}

// IsImage reports whether the document is a single raster image.
func (d Document) IsImage() bool {
	return strings.HasPrefix(d.MIMEType, "image/")
}

// IsWord reports whether the document is a Word file.
func (d Document) IsWord() bool {
	return d.MIMEType == MIMEDOCX || d.MIMEType == MIMEDOC
}

// ExhibitNumber returns the first run of digits in name, skipping any
// non-digit prefix. "Piece_12_temoin.pdf" yields "12".
func ExhibitNumber(name string) string {
	m := exhibitPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return UnknownExhibit
	}
	return m[1]
}

// MIMETypeForName maps a file extension to one of the accepted MIME types.
func MIMETypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMEPDF
	case ".docx":
		return MIMEDOCX
	case ".doc":
		return MIMEDOC
	case ".png":
		return MIMEPNG
	case ".jpg", ".jpeg":
		return MIMEJPEG
	default:
		return "application/octet-stream"
	}
}
