package services

import (
	"context"
	"fmt"

	"knowledge-base-platform/models"
)

// textExtractor handles documents whose content was supplied inline at
// creation time. There is nothing to fetch; the document body is the source.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, doc *models.Document, _ *models.KnowledgeBase) (*ExtractResult, error) {
	if doc.Content == "" {
		return nil, fmt.Errorf("text document %s has no content", doc.ID.Hex())
	}
	return &ExtractResult{
		Text:      doc.Content,
		SourceTag: chunkSourceTag("text", doc.Title),
	}, nil
}
