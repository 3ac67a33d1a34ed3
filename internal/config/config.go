package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	Port     string
	GinMode  string

	CORSOrigins []string
	JWTSecret   string

	// Redis Configuration (asynq queue + transcript cache)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Chunking defaults; knowledge-base settings override per document
	MaxChunkSize int
	ChunkOverlap int

	// File ingestion
	FileStorageDir string
	MaxFileSize    int64

	// Embeddings configuration
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	DefaultProviderID     int
	VectorDimensions      int

	// Web page fetching
	PageFetchUserAgent string
	RenderJS           bool
	RenderTimeout      time.Duration

	// Video transcripts
	TranscriptCacheTTL  time.Duration
	InvidiousInstances  []string
	TranscriptRateLimit float64

	// Cloud file connector (Google Drive)
	GoogleDriveAPIKey string

	// Background sweep
	SweepCron          string
	StuckProcessingAge time.Duration

	// API rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/knowledge_base"),
		DBName:   getEnv("DB_NAME", "knowledge_base"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		DefaultProviderID:     getEnvInt("DEFAULT_PROVIDER_ID", 1),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),

		PageFetchUserAgent: getEnv("PAGE_FETCH_USER_AGENT",
			"Mozilla/5.0 (X11; Linux x86_64; rv:123.0) Gecko/20100101 Firefox/123.0"),
		RenderJS:      getEnvBool("RENDER_JS", false),
		RenderTimeout: getEnvDuration("RENDER_TIMEOUT", 20*time.Second),

		TranscriptCacheTTL: getEnvDuration("TRANSCRIPT_CACHE_TTL", 24*time.Hour),
		InvidiousInstances: strings.Split(getEnv("INVIDIOUS_INSTANCES",
			"https://vid.puffyan.us,https://invidious.projectsegfau.lt,https://y.com.sb"), ","),
		TranscriptRateLimit: getEnvFloat64("TRANSCRIPT_RATE_LIMIT", 0.5),

		GoogleDriveAPIKey: getEnv("GOOGLE_DRIVE_API_KEY", ""),

		SweepCron:          getEnv("SWEEP_CRON", "*/5 * * * *"),
		StuckProcessingAge: getEnvDuration("STUCK_PROCESSING_AGE", 30*time.Minute),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
