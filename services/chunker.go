package services

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits extracted text into fixed-size overlapping windows. The
// split is deterministic: the same text and settings always produce the
// same chunk boundaries.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split walks the sanitized text in steps of size minus overlap. Empty or
// whitespace-only text yields zero chunks, never an error.
func (c *Chunker) Split(text string) []string {
	cleaned := sanitizeText(text)
	if cleaned == "" {
		return nil
	}

	runes := []rune(cleaned)
	if len(runes) <= c.Size {
		return []string{cleaned}
	}

	step := c.Size - c.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// sanitizeText strips control characters that upset embedding APIs and
// collapses runs of whitespace. Newlines survive as single spaces.
func sanitizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// chunkSourceTag builds the per-chunk source label, e.g. "url:example.com"
// or "file:report.pdf".
func chunkSourceTag(kind, name string) string {
	return fmt.Sprintf("%s:%s", kind, name)
}
