package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/logger"
	"knowledge-base-platform/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// VectorStore generates embeddings for chunks and persists the resulting
// vector records. One call is all-or-nothing: any provider error aborts the
// run and no ids are returned. Records are upserted keyed by
// (document_id, chunk_index) so reprocessing replaces rather than duplicates.
type VectorStore struct {
	cfg     *config.Config
	chunks  *mongo.Collection
	client  *genai.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewVectorStore creates the embedding collaborator backed by Gemini and
// the doc_chunks collection.
func NewVectorStore(ctx context.Context, cfg *config.Config, db *mongo.Database) (*VectorStore, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini-embeddings",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Embedding circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &VectorStore{
		cfg:     cfg,
		chunks:  db.Collection("doc_chunks"),
		client:  client,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}, nil
}

// Close releases the underlying provider client.
func (v *VectorStore) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// CreateAndStoreEmbeddings embeds every chunk in one batched provider call
// and upserts a vector record per chunk. Returns the record ids in chunk
// order. providerID is bookkeeping only; the configured model does the work.
func (v *VectorStore) CreateAndStoreEmbeddings(ctx context.Context, userID, kbID, docID string, chunks []models.Chunk, providerID int) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := v.embedBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d chunks", len(vectors), len(chunks))
	}

	batch := make([]mongo.WriteModel, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		recordID := fmt.Sprintf("%s:%d", docID, ch.Index)
		doc := bson.M{
			"_id":               recordID,
			"user_id":           userID,
			"knowledge_base_id": kbID,
			"document_id":       docID,
			"chunk_index":       ch.Index,
			"chunk_total":       ch.Total,
			"source_tag":        ch.SourceTag,
			"text":              ch.Content,
			"metadata":          ch.Metadata,
			"provider_id":       providerID,
			"vector":            vectors[i],
			"updated_at":        time.Now(),
		}
		batch = append(batch, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": recordID}).
			SetReplacement(doc).
			SetUpsert(true))
		ids = append(ids, recordID)
	}

	if _, err := v.chunks.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false)); err != nil {
		return nil, fmt.Errorf("store embeddings: %w", err)
	}

	return ids, nil
}

// embedBatch calls the provider once for all chunk texts, behind the
// circuit breaker and rate limiter.
func (v *VectorStore) embedBatch(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := v.breaker.Execute(func() (interface{}, error) {
		em := v.client.EmbeddingModel(v.cfg.GoogleEmbeddingsModel)
		batch := em.NewBatch()
		for _, ch := range chunks {
			batch.AddContent(genai.Text(ch.Content))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch embed: %w", err)
		}

		out := make([][]float32, 0, len(resp.Embeddings))
		for _, e := range resp.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("no embedding returned")
			}
			if want := v.cfg.VectorDimensions; want > 0 && len(e.Values) != want {
				return nil, fmt.Errorf("provider returned %d-dimensional vector, expected %d", len(e.Values), want)
			}
			out = append(out, e.Values)
		}
		return out, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("embedding provider unavailable: %w", err)
	}
	if err != nil {
		return nil, err
	}

	return result.([][]float32), nil
}
