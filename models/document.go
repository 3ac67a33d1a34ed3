package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceType identifies where a document's raw content comes from.
type SourceType string

const (
	SourceText  SourceType = "text"
	SourceFile  SourceType = "file"
	SourceURL   SourceType = "url"
	SourceVideo SourceType = "video"
	SourceCloud SourceType = "cloud"
)

// Document processing status constants
const (
	StatusInitial         = "initial"
	StatusProcessing      = "processing"
	StatusProcessed       = "processed"
	StatusFailed          = "failed"
	StatusEmbeddingFailed = "embedding_failed"
)

// Document is one unit of ingestible content belonging to a knowledge base.
// It is created by the upload/create flow and mutated exclusively by the
// ingestion pipeline once processing starts.
type Document struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	KnowledgeBaseID primitive.ObjectID `bson:"knowledge_base_id" json:"knowledge_base_id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	SourceType      SourceType         `bson:"source_type" json:"source_type"`
	SourceURL       string             `bson:"source_url,omitempty" json:"source_url,omitempty"`
	FilePath        string             `bson:"file_path,omitempty" json:"file_path,omitempty"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Tags            []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Content         string             `bson:"content,omitempty" json:"content,omitempty"`
	CustomFields    map[string]any     `bson:"custom_fields,omitempty" json:"custom_fields,omitempty"`
	Status          string             `bson:"status" json:"status"`
	ProcessingInfo  ProcessingInfo     `bson:"processing_info" json:"processing_info"`
	Metadata        ResultMetadata     `bson:"metadata" json:"metadata"`
	EmbeddingIDs    []string           `bson:"embedding_ids,omitempty" json:"embedding_ids,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// ProcessingInfo is the structured progress record a client polls. It is
// replaced whole at every milestone, never merged field by field.
type ProcessingInfo struct {
	StatusMessage string     `bson:"status_message" json:"status_message"`
	Progress      int        `bson:"progress" json:"progress"`
	ChunkSize     int        `bson:"chunk_size,omitempty" json:"chunk_size,omitempty"`
	ChunkOverlap  int        `bson:"chunk_overlap,omitempty" json:"chunk_overlap,omitempty"`
	StartedAt     *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt   *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Error         string     `bson:"error,omitempty" json:"error,omitempty"`
}

// ResultMetadata is the pipeline's result bookkeeping for a document.
type ResultMetadata struct {
	ChunkCount         int            `bson:"chunk_count" json:"chunk_count"`
	EmbeddingCount     int            `bson:"embedding_count" json:"embedding_count"`
	EmbeddingProvider  int            `bson:"embedding_provider,omitempty" json:"embedding_provider,omitempty"`
	SourceFlags        map[string]any `bson:"source_flags,omitempty" json:"source_flags,omitempty"`
	CustomFields       map[string]any `bson:"custom_fields,omitempty" json:"custom_fields,omitempty"`
	ReprocessRequested bool           `bson:"reprocess_requested,omitempty" json:"reprocess_requested,omitempty"`
	ReprocessMarkedAt  *time.Time     `bson:"reprocess_marked_at,omitempty" json:"reprocess_marked_at,omitempty"`
}

// Chunk is a bounded slice of a document's extracted text. Chunks live only
// for the duration of one pipeline run; they are never persisted as entities.
type Chunk struct {
	ChunkID   string         `json:"chunk_id"`
	Content   string         `json:"content"`
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	SourceTag string         `json:"source_tag"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DocumentUpdate is a partial patch applied to a document. Nil fields are
// left untouched by the persistence layer.
type DocumentUpdate struct {
	Content        *string
	Status         *string
	ProcessingInfo *ProcessingInfo
	Metadata       *ResultMetadata
	EmbeddingIDs   []string
}

// ProcessResponse is returned by the process-document trigger.
type ProcessResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Chunks     int    `json:"chunks"`
	Embeddings int    `json:"embeddings"`
	Message    string `json:"message,omitempty"`
}
