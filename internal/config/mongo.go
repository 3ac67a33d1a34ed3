package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Knowledge bases: one name per owner
	kbCollection := db.Collection("knowledge_bases")
	kbIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := kbCollection.Indexes().CreateMany(context.Background(), kbIndexes)
	if err != nil {
		return err
	}

	// Documents: lookups by knowledge base and sweep scans by status/age
	docsCollection := db.Collection("documents")
	docIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "knowledge_base_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "metadata.reprocess_requested", Value: 1}},
		},
	}
	_, err = docsCollection.Indexes().CreateMany(context.Background(), docIndexes)
	if err != nil {
		return err
	}

	// Embedding records: upsert key and vector-search filters
	chunksCollection := db.Collection("doc_chunks")
	chunkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "chunk_index", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "knowledge_base_id", Value: 1}},
		},
	}
	_, err = chunksCollection.Indexes().CreateMany(context.Background(), chunkIndexes)
	if err != nil {
		return err
	}

	// Provider slug lookups
	providersCollection := db.Collection("providers")
	providerIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = providersCollection.Indexes().CreateMany(context.Background(), providerIndexes)
	if err != nil {
		return err
	}

	return nil
}
