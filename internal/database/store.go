package database

import (
	"context"
	"fmt"
	"time"

	"knowledge-base-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a looked-up entity does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Store is the Mongo-backed persistence layer for documents, knowledge
// bases and provider lookups. The pipeline only reads and writes the
// fields exposed through models; other collections are owned elsewhere.
type Store struct {
	documents      *mongo.Collection
	knowledgeBases *mongo.Collection
	providers      *mongo.Collection
}

// NewStore creates a store bound to the given database.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		documents:      db.Collection("documents"),
		knowledgeBases: db.Collection("knowledge_bases"),
		providers:      db.Collection("providers"),
	}
}

// GetDocument loads a document by its hex id.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", id, err)
	}

	var doc models.Document
	err = s.documents.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}

	return &doc, nil
}

// UpdateDocument applies a partial patch. Only non-nil fields are written;
// updated_at is always refreshed.
func (s *Store) UpdateDocument(ctx context.Context, id string, patch models.DocumentUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}

	set := bson.M{"updated_at": time.Now()}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.ProcessingInfo != nil {
		set["processing_info"] = *patch.ProcessingInfo
	}
	if patch.Metadata != nil {
		set["metadata"] = *patch.Metadata
	}
	if patch.EmbeddingIDs != nil {
		set["embedding_ids"] = patch.EmbeddingIDs
	}

	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// GetKnowledgeBase loads a knowledge base by its hex id.
func (s *Store) GetKnowledgeBase(ctx context.Context, id string) (*models.KnowledgeBase, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid knowledge base id %q: %w", id, err)
	}

	var kb models.KnowledgeBase
	err = s.knowledgeBases.FindOne(ctx, bson.M{"_id": oid}).Decode(&kb)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find knowledge base: %w", err)
	}

	return &kb, nil
}

// LookupProviderIDBySlug resolves an embedding provider slug to its
// numeric id. Returns 0 when the slug is unknown.
func (s *Store) LookupProviderIDBySlug(ctx context.Context, slug string) (int, error) {
	var p models.Provider
	err := s.providers.FindOne(ctx, bson.M{"slug": slug}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup provider slug: %w", err)
	}

	return p.ID, nil
}

// FindSweepCandidates returns ids of documents that either requested an
// embedding reprocess or have sat in processing longer than maxAge. Used
// by the scheduled sweep; oldest first, bounded.
func (s *Store) FindSweepCandidates(ctx context.Context, maxAge time.Duration, limit int64) ([]string, error) {
	cutoff := time.Now().Add(-maxAge)
	filter := bson.M{
		"$or": []bson.M{
			{"metadata.reprocess_requested": true},
			{"status": models.StatusProcessing, "updated_at": bson.M{"$lt": cutoff}},
		},
	}

	cursor, err := s.documents.Find(ctx, filter, &options.FindOptions{
		Sort:  bson.M{"updated_at": 1},
		Limit: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("find sweep candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sweep candidates: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

// MarkReprocessRequested flags a document for a future embedding reprocess
// without running the pipeline. Only metadata and the timestamp change.
func (s *Store) MarkReprocessRequested(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}

	now := time.Now()
	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"metadata.reprocess_requested": true,
			"metadata.reprocess_marked_at": now,
			"updated_at":                   now,
		},
	})
	if err != nil {
		return fmt.Errorf("mark reprocess: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}
