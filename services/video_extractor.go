package services

import (
	"context"
	"fmt"

	"knowledge-base-platform/models"
)

// videoExtractor pulls the transcript for a video document. The coordinator
// persists the transcript onto the document as soon as extraction returns,
// so an embedding failure later never loses it.
type videoExtractor struct {
	transcripts ContentFetcher
}

func newVideoExtractor(transcripts ContentFetcher) *videoExtractor {
	return &videoExtractor{transcripts: transcripts}
}

func (e *videoExtractor) Extract(ctx context.Context, doc *models.Document, _ *models.KnowledgeBase) (*ExtractResult, error) {
	if doc.SourceURL == "" {
		return nil, fmt.Errorf("video document %s has no source url", doc.ID.Hex())
	}

	text, meta, err := e.transcripts.FetchContent(ctx, doc.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video transcript: %w", err)
	}

	title := doc.Title
	if meta != nil {
		if t, ok := meta["title"].(string); ok && t != "" {
			title = t
		}
	}

	return &ExtractResult{
		Text:      text,
		SourceTag: chunkSourceTag("youtube", title),
		Metadata:  meta,
	}, nil
}
