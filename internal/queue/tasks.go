package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"knowledge-base-platform/internal/logger"
	"knowledge-base-platform/services"
)

const (
	TaskProcessDocument = "document:process"
)

type ProcessDocumentPayload struct {
	UserID          string `json:"user_id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	DocumentID      string `json:"document_id"`
}

// NewProcessDocumentTask enqueues one pipeline run for a document.
func NewProcessDocumentTask(userID, kbID, docID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessDocumentPayload{
		UserID:          userID,
		KnowledgeBaseID: kbID,
		DocumentID:      docID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

// TaskProcessor dispatches queued tasks to the ingestion service.
type TaskProcessor struct {
	ingest *services.IngestService
}

func NewTaskProcessor(ingest *services.IngestService) *TaskProcessor {
	return &TaskProcessor{ingest: ingest}
}

// ProcessDocument runs the pipeline for a queued document. A concurrency
// conflict is retried by asynq; a run that already happened is a success.
func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload ProcessDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("processing queued document",
		"document_id", payload.DocumentID, "knowledge_base_id", payload.KnowledgeBaseID)

	resp, err := p.ingest.ProcessDocument(ctx, payload.UserID, payload.KnowledgeBaseID, payload.DocumentID)
	if err != nil {
		if errors.Is(err, services.ErrProcessingConflict) {
			return fmt.Errorf("document %s busy, retrying: %w", payload.DocumentID, err)
		}
		if errors.Is(err, services.ErrDocumentNotFound) || errors.Is(err, services.ErrAccessDenied) {
			return fmt.Errorf("document %s not processable: %v: %w", payload.DocumentID, err, asynq.SkipRetry)
		}
		return err
	}

	logger.Info("queued document processed",
		"document_id", payload.DocumentID, "chunks", resp.Chunks, "embeddings", resp.Embeddings)
	return nil
}
