package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func fileDoc(path string) *models.Document {
	return &models.Document{
		ID:         primitive.NewObjectID(),
		SourceType: models.SourceFile,
		Title:      "Upload",
		FilePath:   path,
	}
}

func TestFileExtractorPlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "notes.txt", "line one\nline two\n")

	e := newFileExtractor(&config.Config{})
	result, err := e.Extract(context.Background(), fileDoc(path), nil)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if result.Text != "line one\nline two\n" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.SourceTag != "file:notes.txt" {
		t.Fatalf("unexpected source tag: %q", result.SourceTag)
	}
	if result.Metadata["file_name"] != "notes.txt" {
		t.Fatalf("metadata missing file name: %v", result.Metadata)
	}
}

func TestFileExtractorUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "archive.zip", "PK")

	e := newFileExtractor(&config.Config{})
	_, err := e.Extract(context.Background(), fileDoc(path), nil)
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("expected unsupported source, got %v", err)
	}
}

func TestFileExtractorSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "big.txt", "0123456789")

	e := newFileExtractor(&config.Config{MaxFileSize: 5})
	if _, err := e.Extract(context.Background(), fileDoc(path), nil); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestFileExtractorMetadataFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "report.docx", "not really a docx")

	doc := fileDoc(path)
	doc.Title = "Quarterly Report"
	doc.Description = "Numbers for Q2"
	doc.Tags = []string{"finance", "q2"}

	e := newFileExtractor(&config.Config{})
	result, err := e.Extract(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if result.Metadata["extraction"] != "metadata_fallback" {
		t.Fatalf("expected fallback marker, got %v", result.Metadata)
	}
	for _, want := range []string{"Quarterly Report", "Numbers for Q2", "finance"} {
		if !strings.Contains(result.Text, want) {
			t.Fatalf("fallback text missing %q: %q", want, result.Text)
		}
	}
}

func TestPDFTextOrFallback(t *testing.T) {
	doc := fileDoc("scan.pdf")
	doc.Title = "Scanned Contract"
	doc.Description = "Signed agreement"

	garbage := strings.Repeat("�", 80)
	meta := map[string]any{}
	text := pdfTextOrFallback(doc, garbage, meta)
	if meta["extraction"] != "metadata_fallback" {
		t.Fatalf("expected fallback marker for unusable text layer, got %v", meta)
	}
	for _, want := range []string{"Scanned Contract", "Signed agreement"} {
		if !strings.Contains(text, want) {
			t.Fatalf("fallback text missing %q: %q", want, text)
		}
	}

	readable := "This agreement is entered into by both parties on the first of June. " +
		"It covers the delivery schedule and payment terms in detail."
	meta = map[string]any{}
	if got := pdfTextOrFallback(doc, readable, meta); got != readable {
		t.Fatalf("usable text layer should be kept: %q", got)
	}
	if _, ok := meta["extraction"]; ok {
		t.Fatal("usable text layer must not be marked as fallback")
	}
}

func TestFileExtractorMissingPath(t *testing.T) {
	e := newFileExtractor(&config.Config{})
	if _, err := e.Extract(context.Background(), fileDoc(""), nil); err == nil {
		t.Fatal("expected error for missing file path")
	}
}
