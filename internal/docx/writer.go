// Package docx reads and writes Word documents.
package docx

import (
	"fmt"
	"os"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName  = "Times New Roman"
	fontSize  = 12
	titleSize = 14
)

// Writer renders text into .docx bytes. godocx saves to a path, so each
// document goes through a temporary file under tempDir.
type Writer struct {
	tempDir string
}

func NewWriter(tempDir string) *Writer {
	return &Writer{tempDir: tempDir}
}

// SummaryDocument writes a bold title followed by the body, one paragraph
// per non-blank line.
func (w *Writer) SummaryDocument(title, body string) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("docx: new document: %w", err)
	}

	addRun(doc.AddParagraph(""), title, true, titleSize)
	addBody(doc, body)
	return w.save(doc)
}

// PagesDocument writes one section per page, separated by an empty
// paragraph.
func (w *Writer) PagesDocument(title string, pages []string) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("docx: new document: %w", err)
	}

	if title != "" {
		addRun(doc.AddParagraph(""), title, true, titleSize)
	}
	for i, page := range pages {
		if i > 0 {
			doc.AddParagraph("")
		}
		addBody(doc, page)
	}
	return w.save(doc)
}

func addBody(doc *docx.RootDoc, body string) {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		addRun(doc.AddParagraph(""), trimmed, false, fontSize)
	}
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func (w *Writer) save(doc *docx.RootDoc) ([]byte, error) {
	f, err := os.CreateTemp(w.tempDir, "doc-*.docx")
	if err != nil {
		return nil, fmt.Errorf("docx: temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := doc.SaveTo(path); err != nil {
		return nil, fmt.Errorf("docx: save: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docx: read back: %w", err)
	}
	return data, nil
}
