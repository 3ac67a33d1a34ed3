package routes

import (
	"errors"
	"net/http"

	"knowledge-base-platform/internal/queue"
	"knowledge-base-platform/middleware"
	"knowledge-base-platform/services"
	"knowledge-base-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// SetupDocumentRoutes registers the document pipeline endpoints under the
// authenticated API group.
func SetupDocumentRoutes(api *gin.RouterGroup, ingest *services.IngestService, queueClient *asynq.Client) {
	docs := api.Group("/knowledge-bases/:kbId/documents/:id")
	docs.POST("/process", HandleProcessDocument(ingest, queueClient))
	docs.POST("/reprocess-embeddings", HandleReprocessEmbeddings(ingest))
	docs.GET("/status", HandleDocumentStatus(ingest))
}

// HandleProcessDocument triggers the ingestion pipeline for one document.
// With ?async=true the run is enqueued and the call returns 202; otherwise
// the pipeline runs inline and the call returns its outcome.
func HandleProcessDocument(ingest *services.IngestService, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		kbID := c.Param("kbId")
		docID := c.Param("id")

		if c.Query("async") == "true" && queueClient != nil {
			// Enqueued runs still need the ownership check up front so a
			// bad request fails at the API, not in the worker.
			if _, err := ingest.GetDocument(c.Request.Context(), userID, kbID, docID); err != nil {
				respondPipelineError(c, err)
				return
			}
			task, err := queue.NewProcessDocumentTask(userID, kbID, docID)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create processing task", nil)
				return
			}
			info, err := queueClient.Enqueue(task)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to enqueue processing task", nil)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{
				"message":     "Document accepted for processing",
				"document_id": docID,
				"task_id":     info.ID,
			})
			return
		}

		resp, err := ingest.ProcessDocument(c.Request.Context(), userID, kbID, docID)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleReprocessEmbeddings marks a document for embedding reprocessing.
// The actual rerun happens out of band.
func HandleReprocessEmbeddings(ingest *services.IngestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		kbID := c.Param("kbId")
		docID := c.Param("id")

		if err := ingest.RequestReprocess(c.Request.Context(), userID, kbID, docID); err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"message":     "Document marked for embedding reprocessing",
			"document_id": docID,
		})
	}
}

// HandleDocumentStatus returns the document's processing state for polling.
func HandleDocumentStatus(ingest *services.IngestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		kbID := c.Param("kbId")
		docID := c.Param("id")

		doc, err := ingest.GetDocument(c.Request.Context(), userID, kbID, docID)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"document_id":     doc.ID.Hex(),
			"status":          doc.Status,
			"processing_info": doc.ProcessingInfo,
			"chunk_count":     doc.Metadata.ChunkCount,
			"embedding_count": doc.Metadata.EmbeddingCount,
			"updated_at":      doc.UpdatedAt,
		})
	}
}

func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		utils.RespondWithNotFound(c, "Document not found")
	case errors.Is(err, services.ErrAccessDenied):
		utils.RespondWithForbidden(c, "You do not have access to this document")
	case errors.Is(err, services.ErrProcessingConflict):
		utils.RespondWithConflict(c, "Document is already being processed")
	default:
		utils.RespondWithInternalError(c, "Document processing failed", gin.H{"error": err.Error()})
	}
}
