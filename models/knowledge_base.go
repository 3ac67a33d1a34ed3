package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KnowledgeBase is a named collection of documents with shared ingestion
// settings, owned by a user.
type KnowledgeBase struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Settings    KnowledgeBaseSettings `bson:"settings" json:"settings"`
	// CustomSchema declares user-defined fields carried onto every chunk's
	// metadata for documents in this knowledge base.
	CustomSchema []CustomField `bson:"custom_schema,omitempty" json:"custom_schema,omitempty"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// KnowledgeBaseSettings holds per-knowledge-base ingestion parameters.
// EmbeddingProvider is deliberately loose: legacy clients send a numeric id,
// a numeric string, a slug, or nothing at all.
type KnowledgeBaseSettings struct {
	EmbeddingProvider any `bson:"embedding_provider,omitempty" json:"embedding_provider,omitempty"`
	ChunkSize         int `bson:"chunk_size,omitempty" json:"chunk_size,omitempty"`
	ChunkOverlap      int `bson:"chunk_overlap,omitempty" json:"chunk_overlap,omitempty"`
}

// CustomField is one entry of a knowledge base's custom schema.
type CustomField struct {
	Name string `bson:"name" json:"name"`
	Type string `bson:"type" json:"type"`
}

// Provider maps an embedding vendor slug to its numeric id.
type Provider struct {
	ID   int    `bson:"_id" json:"id"`
	Slug string `bson:"slug" json:"slug"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
}
