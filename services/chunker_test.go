package services

import (
	"strings"
	"testing"
)

func TestChunkerEmptyText(t *testing.T) {
	c := NewChunker(1000, 200)
	if got := c.Split(""); got != nil {
		t.Fatalf("expected no chunks for empty text, got %d", len(got))
	}
	if got := c.Split("   \t\n  "); got != nil {
		t.Fatalf("expected no chunks for whitespace-only text, got %d", len(got))
	}
}

func TestChunkerShortText(t *testing.T) {
	c := NewChunker(1000, 200)
	chunks := c.Split("Hello world")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Hello world" {
		t.Fatalf("unexpected chunk content: %q", chunks[0])
	}
}

func TestChunkerDeterministic(t *testing.T) {
	c := NewChunker(100, 20)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 50)

	first := c.Split(text)
	second := c.Split(text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkerSizeAndOverlap(t *testing.T) {
	c := NewChunker(100, 20)
	text := strings.Repeat("abcdefghij", 100) // 1000 chars, no whitespace

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch) > 100 {
			t.Fatalf("chunk %d exceeds size: %d", i, len(ch))
		}
	}
	// Consecutive chunks share the overlap region.
	tail := chunks[0][len(chunks[0])-20:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Fatalf("chunk 1 does not start with chunk 0 overlap")
	}
}

func TestChunkerGuardsBadSettings(t *testing.T) {
	c := NewChunker(0, -1)
	if c.Size != DefaultChunkSize || c.Overlap != DefaultChunkOverlap {
		t.Fatalf("expected defaults, got size=%d overlap=%d", c.Size, c.Overlap)
	}

	c = NewChunker(100, 100)
	if c.Overlap >= c.Size {
		t.Fatalf("overlap %d not reduced below size %d", c.Overlap, c.Size)
	}
	// Degenerate settings must still terminate.
	if got := c.Split(strings.Repeat("x", 500)); len(got) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestSanitizeText(t *testing.T) {
	got := sanitizeText("hello\x00world\n\n  foo�bar")
	if got != "helloworld foobar" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}
