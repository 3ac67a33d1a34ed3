package services

import (
	"context"
	"errors"

	"knowledge-base-platform/models"
)

// Sentinel signals returned by the coordinator. ErrProcessingConflict is a
// first-class outcome, not a failure: it means another run already holds
// the document.
var (
	ErrProcessingConflict = errors.New("document is already being processed")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrUnsupportedSource  = errors.New("unsupported source type")
)

// DocumentStore is the persistence collaborator. The pipeline only touches
// the document fields modeled here; everything else belongs to other parts
// of the system.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, id string, patch models.DocumentUpdate) error
	GetKnowledgeBase(ctx context.Context, id string) (*models.KnowledgeBase, error)
	MarkReprocessRequested(ctx context.Context, id string) error
}

// EmbeddingStore is the embedding/vector-index collaborator. One call is
// all-or-nothing and order preserving: one record id per chunk, in chunk
// order, or an error.
type EmbeddingStore interface {
	CreateAndStoreEmbeddings(ctx context.Context, userID, kbID, docID string, chunks []models.Chunk, providerID int) ([]string, error)
}

// ProviderDirectory resolves embedding provider slugs that the static
// table does not know. Implementations return 0 for unknown slugs.
type ProviderDirectory interface {
	LookupProviderIDBySlug(ctx context.Context, slug string) (int, error)
}

// ContentFetcher is the shape shared by the external content-fetch
// collaborators (web pages, video transcripts, cloud files): text plus
// source metadata, or an error that fails the pipeline run.
type ContentFetcher interface {
	FetchContent(ctx context.Context, sourceURL string) (string, map[string]any, error)
}

// ExtractResult is the normalized output of a content extractor: the raw
// text to chunk, the tag stamped onto every chunk created from it, and any
// source metadata worth keeping on the document.
type ExtractResult struct {
	Text      string
	SourceTag string
	Metadata  map[string]any
}

// Extractor turns a document's raw source into text. The coordinator
// selects the variant by the document's source type.
type Extractor interface {
	Extract(ctx context.Context, doc *models.Document, kb *models.KnowledgeBase) (*ExtractResult, error)
}
