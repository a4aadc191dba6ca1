// Package chunker groups paragraphs into size-bounded chunks.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxTokens     = 1000
	DefaultCharsPerToken = 4
)

// Chunk is an ordered run of contiguous paragraphs.
type Chunk []string

// Text joins the chunk's paragraphs with a blank line.
func (c Chunk) Text() string {
	return strings.Join(c, "\n\n")
}

// Size is the chunk's character count, separators excluded.
func (c Chunk) Size() int {
	n := 0
	for _, p := range c {
		n += utf8.RuneCountInString(p)
	}
	return n
}

// Budget converts a token limit into a character budget.
func Budget(maxTokens, charsPerToken int) int {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return maxTokens * charsPerToken
}

// Paragraphs splits text on newlines and drops blank lines.
func Paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// Split packs paragraphs greedily: a paragraph joins the current chunk while
// the running size stays within budget, otherwise it opens a new chunk. A
// chunk is larger than budget only when it holds a single paragraph.
func Split(paragraphs []string, budget int) []Chunk {
	var chunks []Chunk
	var current Chunk
	size := 0

	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p)
		if size+n > budget && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			size = 0
		}
		current = append(current, p)
		size += n
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// SplitText is Paragraphs followed by Split.
func SplitText(text string, budget int) []Chunk {
	return Split(Paragraphs(text), budget)
}
