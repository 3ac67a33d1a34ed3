package services

import (
	"context"
	"fmt"
	"net/url"

	"knowledge-base-platform/models"
)

// urlExtractor fetches web page content through the page fetcher
// collaborator. A fetch failure fails the run; there is no retry here.
type urlExtractor struct {
	fetcher ContentFetcher
}

func newURLExtractor(fetcher ContentFetcher) *urlExtractor {
	return &urlExtractor{fetcher: fetcher}
}

func (e *urlExtractor) Extract(ctx context.Context, doc *models.Document, _ *models.KnowledgeBase) (*ExtractResult, error) {
	if doc.SourceURL == "" {
		return nil, fmt.Errorf("url document %s has no source url", doc.ID.Hex())
	}

	text, meta, err := e.fetcher.FetchContent(ctx, doc.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page content: %w", err)
	}

	host := doc.SourceURL
	if parsed, err := url.Parse(doc.SourceURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	return &ExtractResult{
		Text:      text,
		SourceTag: chunkSourceTag("url", host),
		Metadata:  meta,
	}, nil
}
