package services

import (
	"context"
	"time"

	"knowledge-base-platform/internal/logger"
	"knowledge-base-platform/models"
)

// Pipeline milestones. Each one replaces the document's processing info
// with a fresh snapshot, so a poller only ever sees the latest stage.
const (
	progressStarted   = 10
	progressExtracted = 30
	progressChunked   = 60
	progressEmbedded  = 80
	progressDone      = 100
)

// progressReporter writes milestone snapshots for one pipeline run.
type progressReporter struct {
	store        DocumentStore
	docID        string
	startedAt    time.Time
	chunkSize    int
	chunkOverlap int
}

func newProgressReporter(store DocumentStore, docID string, startedAt time.Time, chunkSize, chunkOverlap int) *progressReporter {
	return &progressReporter{
		store:        store,
		docID:        docID,
		startedAt:    startedAt,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

func (p *progressReporter) snapshot(progress int, message string) models.ProcessingInfo {
	started := p.startedAt
	return models.ProcessingInfo{
		StatusMessage: message,
		Progress:      progress,
		ChunkSize:     p.chunkSize,
		ChunkOverlap:  p.chunkOverlap,
		StartedAt:     &started,
	}
}

// Report persists a milestone. A failed write is logged and swallowed: the
// pipeline outcome must not depend on progress bookkeeping.
func (p *progressReporter) Report(ctx context.Context, progress int, message string) {
	info := p.snapshot(progress, message)
	if err := p.store.UpdateDocument(ctx, p.docID, models.DocumentUpdate{ProcessingInfo: &info}); err != nil {
		logger.Warn("failed to record processing progress",
			"document_id", p.docID, "progress", progress, "error", err)
	}
}
