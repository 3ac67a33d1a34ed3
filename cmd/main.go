package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"knowledge-base-platform/internal/ai"
	"knowledge-base-platform/internal/cloudfile"
	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/database"
	"knowledge-base-platform/internal/logger"
	"knowledge-base-platform/internal/telemetry"
	"knowledge-base-platform/internal/transcript"
	"knowledge-base-platform/internal/webpage"
	"knowledge-base-platform/middleware"
	"knowledge-base-platform/routes"
	"knowledge-base-platform/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Telemetry is optional; without an endpoint traces stay local noops.
	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracer("knowledge-base-platform", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("failed to initialize tracing", "error", err)
		} else {
			defer shutdown()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("failed to initialize metrics", "error", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
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
		Metrics:     metrics,
	})

	sweeper := services.NewSweeper(cfg, store, ingest)
	if err := sweeper.Start(); err != nil {
		logger.Warn("failed to start document sweep", "error", err)
	}
	defer sweeper.Stop()

	addr, password, redisDB := config.AsynqRedisAddr(cfg)
	queueClient := asynq.NewClient(asynq.RedisClientOpt{Addr: addr, Password: password, DB: redisDB})
	defer queueClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	router.Use(middleware.RateLimitMiddleware(redisClient, cfg))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	api.Use(middleware.EnrichTrace())
	routes.SetupDocumentRoutes(api, ingest, queueClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
