package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/bedrock"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/database"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/discovery"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/embedding"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/llm"
	llmbedrock "github.com/povarna/generative-ai-agents/api-discovery/internal/llm/bedrock"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/llm/groq"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/redis"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/retrieval"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/vectorindex"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BackendFlat     = "flat"
	BackendPgvector = "pgvector"
)

type Config struct {
	LLMProvider    string
	GroqAPIKey     string
	GroqModel      string
	GroqBaseURL    string
	LLMTimeout     time.Duration
	LLMMaxTokens   int
	LLMTemperature float64
	AWSRegion      string
	ClaudeModelID  string

	EmbedProvider   string
	EmbedModel      string
	EmbedDimensions int
	OllamaBaseURL   string
	OllamaToken     string
	OpenAIKey       string
	OpenAIBaseURL   string
	EmbedRateLimit  int
	EmbedCacheSize  int

	IndexDir    string
	CatalogPath string
	SpecsDir    string

	VectorBackend string
	Database      database.Config
	DBMaxRetries  int

	RedisAddr       string
	RedisPassword   string
	RedisTTL        time.Duration
	RedisMaxRetries int

	APIPort           string
	LogLevel          string
	SearchMultiplier  int
	OffTopicThreshold float64
}

type Dependencies struct {
	Config   *Config
	Embedder embedding.Embedder
	Store    *vectorindex.Store
	DB       *database.DB
	Redis    *goredis.Client
	Engine   *retrieval.Engine
	Service  *discovery.Service
	Logger   *zerolog.Logger
}

func LoadConfig() *Config {
	return &Config{
		LLMProvider:    getEnv("LLM_PROVIDER", "groq"),
		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		GroqModel:      getEnv("GROQ_MODEL", groq.DefaultModel),
		GroqBaseURL:    getEnv("GROQ_BASE_URL", groq.DefaultBaseURL),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:  getEnv("CLAUDE_MODEL_ID", ""),

		EmbedProvider:   getEnv("EMBED_PROVIDER", "ollama"),
		EmbedModel:      getEnv("EMBED_MODEL", ""),
		EmbedDimensions: getEnvInt("EMBED_DIMENSIONS", 0),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaToken:     getEnv("OLLAMA_TOKEN", ""),
		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		EmbedRateLimit:  getEnvInt("EMBED_RATE_LIMIT", 0),
		EmbedCacheSize:  getEnvInt("EMBED_CACHE_SIZE", 256),

		IndexDir:    getEnv("INDEX_DIR", "data/faiss_index"),
		CatalogPath: getEnv("CATALOG_PATH", "data/api_docs_clean.json"),
		SpecsDir:    getEnv("SPECS_DIR", "data/specs"),

		VectorBackend: getEnv("VECTOR_BACKEND", BackendFlat),
		Database: database.Config{
			Host:     getEnv("API_DISCOVERY_DB_HOST", "localhost"),
			Port:     getEnv("API_DISCOVERY_DB_PORT", "5432"),
			User:     getEnv("API_DISCOVERY_DB_USER", "postgres"),
			Password: getEnv("API_DISCOVERY_DB_PASSWORD", ""),
			Database: getEnv("API_DISCOVERY_DB_DATABASE", "api_discovery"),
			SSLMode:  getEnv("API_DISCOVERY_DB_SSLMODE", "disable"),
		},
		DBMaxRetries: getEnvInt("API_DISCOVERY_DB_MAX_RETRIES", 5),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTTL:        getEnvDuration("REDIS_TTL", 10*time.Minute),
		RedisMaxRetries: getEnvInt("REDIS_MAX_RETRIES", 3),

		APIPort:           getEnv("API_PORT", "8000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SearchMultiplier:  getEnvInt("SEARCH_MULTIPLIER", retrieval.DefaultMultiplier),
		OffTopicThreshold: getEnvFloat("OFF_TOPIC_THRESHOLD", 35),
	}
}

// Wire builds the full query side of the service: retrieval plus the LLM
// client and the discovery facade
func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	deps, err := WireRetrieval(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	llmClient, err := NewLLMClient(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	deps.Service = discovery.NewService(deps.Engine, llmClient, discovery.Options{
		OffTopicThreshold: cfg.OffTopicThreshold,
		MaxTokens:         cfg.LLMMaxTokens,
		Temperature:       cfg.LLMTemperature,
	}, logger)

	return deps, nil
}

// WireRetrieval builds the embedder, the vector backend, the optional Redis
// cache and the query engine. The CLI uses it directly since it never calls
// the LLM.
func WireRetrieval(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: logger}

	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	deps.Embedder = embedder

	searcher, err := deps.createSearcher(ctx)
	if err != nil {
		return nil, err
	}

	var cache retrieval.Cache
	if cfg.RedisAddr != "" {
		client, err := redis.Connect(ctx, redis.Options{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			MaxRetries: cfg.RedisMaxRetries,
		}, logger)
		if err != nil {
			// the cache is optional
			logger.Warn().Err(err).Msg("Query cache disabled")
		} else {
			deps.Redis = client
			cache = retrieval.NewRedisCache(client, cfg.RedisTTL)
		}
	}

	deps.Engine = retrieval.NewEngine(embedder, searcher, cache, cfg.SearchMultiplier, logger)
	return deps, nil
}

func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}

func (d *Dependencies) createSearcher(ctx context.Context) (retrieval.Searcher, error) {
	switch d.Config.VectorBackend {
	case BackendFlat, "":
		store, err := vectorindex.Load(d.Config.IndexDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load index from %s: %w", d.Config.IndexDir, err)
		}
		manifest := store.Manifest()
		if manifest.ModelID != d.Embedder.ModelID() {
			d.Logger.Warn().
				Str("index_model", manifest.ModelID).
				Str("embedder_model", d.Embedder.ModelID()).
				Msg("Index was built with a different embedding model")
		}
		d.Logger.Info().
			Int("documents", store.Len()).
			Int("dim", store.Dim()).
			Str("dir", d.Config.IndexDir).
			Msg("Vector index loaded")
		d.Store = store
		return store, nil
	case BackendPgvector:
		db, err := ConnectDatabase(ctx, d.Config, d.Logger)
		if err != nil {
			return nil, err
		}
		d.DB = db
		return db, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", d.Config.VectorBackend)
	}
}

func ConnectDatabase(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewWithBackoff(ctx, cfg.Database, max(cfg.DBMaxRetries, 1), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewEmbedder returns the configured provider wrapped in the rate limiter and
// the query embedding cache
func NewEmbedder(ctx context.Context, cfg *Config) (embedding.Embedder, error) {
	base, err := createEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	limited := embedding.NewRateLimitedEmbedder(base, cfg.EmbedRateLimit)
	if cfg.EmbedCacheSize <= 0 {
		return limited, nil
	}
	return embedding.NewCachedEmbedder(limited, cfg.EmbedCacheSize), nil
}

func createEmbedder(ctx context.Context, cfg *Config) (embedding.Embedder, error) {
	switch cfg.EmbedProvider {
	case "ollama":
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.EmbedModel,
			Token:   cfg.OllamaToken,
		}), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.EmbedModel)
	case "bedrock":
		runtime, err := bedrock.NewRuntimeClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return embedding.NewBedrockEmbedder(runtime, cfg.EmbedModel, cfg.EmbedDimensions), nil
	case "hashing":
		return embedding.NewHashingEmbedder(cfg.EmbedDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}
}

func NewLLMClient(ctx context.Context, cfg *Config) (llm.LLMClient, error) {
	retry := llm.DefaultRetryPolicy()
	if cfg.LLMTimeout > 0 {
		retry.Timeout = cfg.LLMTimeout
	}

	switch cfg.LLMProvider {
	case "groq", "":
		return groq.NewClient(groq.Config{
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
			BaseURL: cfg.GroqBaseURL,
			Retry:   retry,
		}), nil
	case "bedrock":
		runtime, err := bedrock.NewRuntimeClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return llmbedrock.NewClient(runtime, cfg.ClaudeModelID, retry)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		value = defaultValue
	}

	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}

	return value
}
