package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/logger"
	"knowledge-base-platform/models"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// fileExtractor handles uploaded files. Extraction is picked by extension:
// PDFs go through the text layer with a quality check, spreadsheets are
// flattened row by row, plain text is read as-is. Office formats without a
// native reader fall back to the document's own metadata.
type fileExtractor struct {
	cfg *config.Config
}

func newFileExtractor(cfg *config.Config) *fileExtractor {
	return &fileExtractor{cfg: cfg}
}

func (e *fileExtractor) Extract(ctx context.Context, doc *models.Document, _ *models.KnowledgeBase) (*ExtractResult, error) {
	if doc.FilePath == "" {
		return nil, fmt.Errorf("file document %s has no file path", doc.ID.Hex())
	}

	path := doc.FilePath
	if !filepath.IsAbs(path) && e.cfg.FileStorageDir != "" {
		path = filepath.Join(e.cfg.FileStorageDir, path)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if e.cfg.MaxFileSize > 0 && stat.Size() > e.cfg.MaxFileSize {
		return nil, fmt.Errorf("file exceeds size limit of %d bytes", e.cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := filepath.Base(path)

	var text string
	meta := map[string]any{"file_name": name, "file_size": stat.Size(), "file_type": ext}

	switch ext {
	case ".pdf":
		var pages int
		text, pages, err = e.extractPDF(ctx, path)
		if err != nil {
			return nil, err
		}
		meta["pages"] = pages
		text = pdfTextOrFallback(doc, text, meta)
	case ".txt", ".md", ".csv", ".log":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		text = string(raw)
	case ".xlsx", ".xlsm":
		text, err = e.extractSpreadsheet(path)
		if err != nil {
			return nil, err
		}
	case ".docx", ".doc", ".rtf", ".odt":
		// No native reader; fall back to whatever the document itself
		// carries so the file still becomes searchable.
		text = metadataFallbackText(doc)
		meta["extraction"] = "metadata_fallback"
		logger.Warn("no native reader for file type, using metadata fallback",
			"document_id", doc.ID.Hex(), "file_type", ext)
	default:
		return nil, fmt.Errorf("%w: file type %q", ErrUnsupportedSource, ext)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text could be extracted from %s", name)
	}

	return &ExtractResult{
		Text:      text,
		SourceTag: chunkSourceTag("file", name),
		Metadata:  meta,
	}, nil
}

// extractPDF reads the PDF text layer page by page.
func (e *fileExtractor) extractPDF(ctx context.Context, path string) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read PDF file: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract PDF page", "page", i, "error", err)
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}

	return b.String(), pages, nil
}

// Text layers scoring below this look like garbage from a scanned or
// encrypted file.
const minPDFTextQuality = 0.3

// pdfTextOrFallback keeps the extracted text when the text layer is usable
// and drops to the document's own metadata otherwise, so a scanned PDF still
// becomes searchable instead of failing the run.
func pdfTextOrFallback(doc *models.Document, text string, meta map[string]any) string {
	quality := pdfTextQuality(text)
	if quality >= minPDFTextQuality {
		return text
	}
	meta["extraction"] = "metadata_fallback"
	logger.Warn("pdf text layer unusable, using metadata fallback",
		"document_id", doc.ID.Hex(), "quality", quality)
	return metadataFallbackText(doc)
}

// extractSpreadsheet flattens every sheet into tab-separated lines.
func (e *fileExtractor) extractSpreadsheet(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("failed to read spreadsheet sheet", "sheet", sheet, "error", err)
			continue
		}
		b.WriteString(sheet)
		b.WriteString("\n")
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// pdfTextQuality scores extracted text between 0 and 1. Scanned PDFs and
// broken encodings yield mostly replacement characters and symbols, which
// drags the score down.
func pdfTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted int
	total := 0
	for _, r := range text {
		total++
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == '�':
			corrupted++
		case r == ' ' || r == '\n' || r == '\t' || (r >= 32 && r <= 126):
			printable++
		case r > 127:
			printable++
		default:
			corrupted++
		}
	}

	score := float64(printable) / float64(total) * 0.5
	if ratio := float64(alphanumeric) / float64(total); ratio >= 0.3 {
		score += 0.4
	} else {
		score += ratio
	}
	score -= float64(corrupted) / float64(total) * 2.0
	if len(text) > 100 {
		score += 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// metadataFallbackText builds indexable text from the document's own
// fields when the file body cannot be read.
func metadataFallbackText(doc *models.Document) string {
	parts := []string{doc.Title}
	if doc.Description != "" {
		parts = append(parts, doc.Description)
	}
	if len(doc.Tags) > 0 {
		parts = append(parts, strings.Join(doc.Tags, ", "))
	}
	for key, value := range doc.CustomFields {
		parts = append(parts, fmt.Sprintf("%s: %v", key, value))
	}
	return strings.Join(parts, "\n")
}
