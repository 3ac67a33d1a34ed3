package main

import (
	"context"
	"log"

	"knowledge-base-platform/internal/ai"
	"knowledge-base-platform/internal/cloudfile"
	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/database"
	"knowledge-base-platform/internal/logger"
	"knowledge-base-platform/internal/queue"
	"knowledge-base-platform/internal/transcript"
	"knowledge-base-platform/internal/webpage"
	"knowledge-base-platform/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.DBName)

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	ctx := context.Background()
	store := database.NewStore(db)
	vectors, err := ai.NewVectorStore(ctx, cfg, db)
	if err != nil {
		log.Fatal("Failed to initialize embeddings:", err)
	}
	defer vectors.Close()

	ingest := services.NewIngestService(cfg, services.IngestDeps{
		Store:       store,
		Embedder:    vectors,
		Providers:   store,
		Pages:       webpage.NewFetcher(cfg),
		Transcripts: transcript.NewService(cfg, redisClient),
		CloudFiles:  cloudfile.NewClient(cfg),
	})

	addr, password, redisDB := config.AsynqRedisAddr(cfg)
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: addr, Password: password, DB: redisDB},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"ingest":  7,
				"default": 3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "task_type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingest)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessDocument, processor.ProcessDocument)

	logger.Info("starting worker", "concurrency", 10, "redis", addr)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
