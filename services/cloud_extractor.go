package services

import (
	"context"
	"fmt"

	"knowledge-base-platform/models"
)

// cloudExtractor fetches file content stored in an external cloud service
// (currently Google Drive) through the cloud file collaborator.
type cloudExtractor struct {
	files ContentFetcher
}

func newCloudExtractor(files ContentFetcher) *cloudExtractor {
	return &cloudExtractor{files: files}
}

func (e *cloudExtractor) Extract(ctx context.Context, doc *models.Document, _ *models.KnowledgeBase) (*ExtractResult, error) {
	if doc.SourceURL == "" {
		return nil, fmt.Errorf("cloud document %s has no source url", doc.ID.Hex())
	}

	text, meta, err := e.files.FetchContent(ctx, doc.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cloud file: %w", err)
	}

	name := doc.Title
	if meta != nil {
		if n, ok := meta["file_name"].(string); ok && n != "" {
			name = n
		}
	}

	return &ExtractResult{
		Text:      text,
		SourceTag: chunkSourceTag("cloud", name),
		Metadata:  meta,
	}, nil
}
