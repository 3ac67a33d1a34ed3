package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/database"
	"knowledge-base-platform/internal/logger"
	"knowledge-base-platform/internal/telemetry"
	"knowledge-base-platform/models"

	"github.com/google/uuid"
)

// IngestService runs the document ingestion pipeline: extract, chunk,
// embed, finalize. One run owns its document exclusively within this
// process for its whole duration.
type IngestService struct {
	cfg      *config.Config
	store    DocumentStore
	embedder EmbeddingStore
	resolver *ProviderResolver
	metrics  *telemetry.Metrics
	guard    *runGuard

	extractors map[models.SourceType]Extractor
}

// IngestDeps bundles the external collaborators the pipeline needs.
type IngestDeps struct {
	Store       DocumentStore
	Embedder    EmbeddingStore
	Providers   ProviderDirectory
	Pages       ContentFetcher
	Transcripts ContentFetcher
	CloudFiles  ContentFetcher
	Metrics     *telemetry.Metrics
}

func NewIngestService(cfg *config.Config, deps IngestDeps) *IngestService {
	return &IngestService{
		cfg:      cfg,
		store:    deps.Store,
		embedder: deps.Embedder,
		resolver: NewProviderResolver(deps.Providers, cfg.DefaultProviderID),
		metrics:  deps.Metrics,
		guard:    newRunGuard(),
		extractors: map[models.SourceType]Extractor{
			models.SourceText:  textExtractor{},
			models.SourceFile:  newFileExtractor(cfg),
			models.SourceURL:   newURLExtractor(deps.Pages),
			models.SourceVideo: newVideoExtractor(deps.Transcripts),
			models.SourceCloud: newCloudExtractor(deps.CloudFiles),
		},
	}
}

// ProcessDocument runs the full pipeline for one document. It returns
// ErrProcessingConflict when another run in this process already holds the
// document, and a ProcessResponse describing the outcome otherwise.
func (s *IngestService) ProcessDocument(ctx context.Context, userID, kbID, docID string) (*models.ProcessResponse, error) {
	doc, err := s.loadOwnedDocument(ctx, userID, kbID, docID)
	if err != nil {
		return nil, err
	}

	if !s.guard.TryAcquire(docID) {
		if s.metrics != nil {
			s.metrics.RecordConflict()
		}
		return nil, ErrProcessingConflict
	}
	defer s.guard.Release(docID)

	// Already fully processed with embeddings in place: nothing to redo
	// unless a reprocess was explicitly requested. A processed video
	// document additionally needs its transcript intact, otherwise the
	// stored content was lost and a rerun must rebuild it.
	if doc.Status == models.StatusProcessed && doc.Metadata.EmbeddingCount > 0 &&
		!doc.Metadata.ReprocessRequested &&
		(doc.SourceType != models.SourceVideo || doc.Content != "") {
		return &models.ProcessResponse{
			DocumentID: docID,
			Status:     doc.Status,
			Chunks:     doc.Metadata.ChunkCount,
			Embeddings: doc.Metadata.EmbeddingCount,
			Message:    "document already processed",
		}, nil
	}

	start := time.Now()
	resp, err := s.runPipeline(ctx, doc)
	if s.metrics != nil {
		status := models.StatusProcessed
		if err != nil {
			status = models.StatusFailed
		}
		s.metrics.RecordPipelineRun(string(doc.SourceType), status, time.Since(start).Seconds())
	}
	return resp, err
}

func (s *IngestService) runPipeline(ctx context.Context, doc *models.Document) (*models.ProcessResponse, error) {
	docID := doc.ID.Hex()
	startedAt := time.Now().UTC()

	kb, err := s.store.GetKnowledgeBase(ctx, doc.KnowledgeBaseID.Hex())
	if err != nil {
		return nil, s.failRun(ctx, docID, startedAt, progressStarted, fmt.Errorf("failed to load knowledge base: %w", err))
	}

	chunker := NewChunker(s.chunkSize(kb), s.chunkOverlap(kb))
	providerID := s.resolver.Resolve(ctx, kb.Settings.EmbeddingProvider)

	progress := newProgressReporter(s.store, docID, startedAt, chunker.Size, chunker.Overlap)
	processing := models.StatusProcessing
	info := progress.snapshot(progressStarted, "Starting document processing")
	if err := s.store.UpdateDocument(ctx, docID, models.DocumentUpdate{
		Status:         &processing,
		ProcessingInfo: &info,
	}); err != nil {
		return nil, fmt.Errorf("failed to mark document as processing: %w", err)
	}

	logger.Info("processing document",
		"document_id", docID, "source_type", doc.SourceType, "provider_id", providerID)

	extractor, ok := s.extractors[doc.SourceType]
	if !ok {
		return nil, s.failRun(ctx, docID, startedAt, progressStarted,
			fmt.Errorf("%w: %q", ErrUnsupportedSource, doc.SourceType))
	}

	result, err := extractor.Extract(ctx, doc, kb)
	if err != nil {
		return nil, s.failRun(ctx, docID, startedAt, progressStarted, fmt.Errorf("extraction failed: %w", err))
	}
	cleanText := sanitizeText(result.Text)

	// Persist a video transcript the moment it exists. Transcripts are
	// expensive to refetch and must survive any later stage failing. The
	// stored transcript is the sanitized one, the same text the chunker sees.
	if doc.SourceType == models.SourceVideo {
		if err := s.store.UpdateDocument(ctx, docID, models.DocumentUpdate{Content: &cleanText}); err != nil {
			return nil, s.failRun(ctx, docID, startedAt, progressExtracted,
				fmt.Errorf("failed to persist transcript: %w", err))
		}
	}
	progress.Report(ctx, progressExtracted, "Content extracted")

	pieces := chunker.Split(cleanText)
	if len(pieces) == 0 {
		return s.finalize(ctx, doc, progress, "", nil, nil, providerID, result.Metadata)
	}

	chunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.Chunk{
			ChunkID:   uuid.NewString(),
			Content:   piece,
			Index:     i,
			Total:     len(pieces),
			SourceTag: result.SourceTag,
			Metadata:  chunkMetadata(doc, kb),
		}
	}
	if s.metrics != nil {
		s.metrics.RecordChunks(string(doc.SourceType), int64(len(chunks)))
	}
	progress.Report(ctx, progressChunked, fmt.Sprintf("Created %d chunks", len(chunks)))

	embedStart := time.Now()
	embeddingIDs, err := s.embedder.CreateAndStoreEmbeddings(ctx,
		doc.UserID.Hex(), doc.KnowledgeBaseID.Hex(), docID, chunks, providerID)
	if err != nil {
		return nil, s.failRun(ctx, docID, startedAt, progressChunked, fmt.Errorf("embedding failed: %w", err))
	}
	if s.metrics != nil {
		s.metrics.RecordEmbedding(providerID, time.Since(embedStart).Seconds())
	}
	progress.Report(ctx, progressEmbedded, "Embeddings stored")

	return s.finalize(ctx, doc, progress, cleanText, chunks, embeddingIDs, providerID, result.Metadata)
}

// finalize writes the terminal processed state. Video documents keep the
// content written at extraction time untouched; everything else gets its
// extracted text persisted here.
func (s *IngestService) finalize(ctx context.Context, doc *models.Document, progress *progressReporter,
	text string, chunks []models.Chunk, embeddingIDs []string, providerID int, sourceMeta map[string]any) (*models.ProcessResponse, error) {

	docID := doc.ID.Hex()
	now := time.Now().UTC()

	info := progress.snapshot(progressDone, "Processing complete")
	info.CompletedAt = &now

	processed := models.StatusProcessed
	meta := models.ResultMetadata{
		ChunkCount:        len(chunks),
		EmbeddingCount:    len(embeddingIDs),
		EmbeddingProvider: providerID,
		SourceFlags:       sourceMeta,
		CustomFields:      doc.Metadata.CustomFields,
	}

	update := models.DocumentUpdate{
		Status:         &processed,
		ProcessingInfo: &info,
		Metadata:       &meta,
		EmbeddingIDs:   embeddingIDs,
	}
	if doc.SourceType != models.SourceVideo && text != "" {
		update.Content = &text
	}

	if err := s.store.UpdateDocument(ctx, docID, update); err != nil {
		return nil, s.failRun(ctx, docID, progress.startedAt, progressEmbedded,
			fmt.Errorf("failed to finalize document: %w", err))
	}

	logger.Info("document processed",
		"document_id", docID, "chunks", len(chunks), "embeddings", len(embeddingIDs))

	message := "document processed"
	if len(chunks) == 0 {
		message = "document processed with no extractable content"
	}
	return &models.ProcessResponse{
		DocumentID: docID,
		Status:     processed,
		Chunks:     len(chunks),
		Embeddings: len(embeddingIDs),
		Message:    message,
	}, nil
}

// failRun records the failure on the document and returns the original
// error. The bookkeeping write is best effort.
func (s *IngestService) failRun(ctx context.Context, docID string, startedAt time.Time, progress int, cause error) error {
	logger.Error("document processing failed", "document_id", docID, "error", cause)

	now := time.Now().UTC()
	failed := models.StatusFailed
	info := models.ProcessingInfo{
		StatusMessage: "Processing failed",
		Progress:      progress,
		StartedAt:     &startedAt,
		CompletedAt:   &now,
		Error:         cause.Error(),
	}
	if err := s.store.UpdateDocument(ctx, docID, models.DocumentUpdate{
		Status:         &failed,
		ProcessingInfo: &info,
	}); err != nil {
		logger.Error("failed to record processing failure", "document_id", docID, "error", err)
	}
	return cause
}

// RequestReprocess marks a document for embedding reprocessing without
// running the pipeline inline. The sweep or a later process call picks the
// mark up.
func (s *IngestService) RequestReprocess(ctx context.Context, userID, kbID, docID string) error {
	if _, err := s.loadOwnedDocument(ctx, userID, kbID, docID); err != nil {
		return err
	}
	return s.store.MarkReprocessRequested(ctx, docID)
}

// GetDocument returns the document after verifying ownership.
func (s *IngestService) GetDocument(ctx context.Context, userID, kbID, docID string) (*models.Document, error) {
	return s.loadOwnedDocument(ctx, userID, kbID, docID)
}

func (s *IngestService) loadOwnedDocument(ctx context.Context, userID, kbID, docID string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc.UserID.Hex() != userID || doc.KnowledgeBaseID.Hex() != kbID {
		return nil, ErrAccessDenied
	}
	return doc, nil
}

func (s *IngestService) chunkSize(kb *models.KnowledgeBase) int {
	if kb.Settings.ChunkSize > 0 {
		return kb.Settings.ChunkSize
	}
	return s.cfg.MaxChunkSize
}

func (s *IngestService) chunkOverlap(kb *models.KnowledgeBase) int {
	if kb.Settings.ChunkOverlap > 0 {
		return kb.Settings.ChunkOverlap
	}
	return s.cfg.ChunkOverlap
}

// chunkMetadata copies the knowledge base's custom schema values from the
// document onto each chunk.
func chunkMetadata(doc *models.Document, kb *models.KnowledgeBase) map[string]any {
	if len(kb.CustomSchema) == 0 || len(doc.CustomFields) == 0 {
		return nil
	}
	meta := make(map[string]any)
	for _, field := range kb.CustomSchema {
		if value, ok := doc.CustomFields[field.Name]; ok {
			meta[field.Name] = value
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
