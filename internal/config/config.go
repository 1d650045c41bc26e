package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// HuggingFace Inference API (primary embedding provider).
	HFAPIKey     string `envconfig:"HF_API_KEY"`
	HFModelURL   string `envconfig:"HF_MODEL_URL" default:"https://router.huggingface.co/hf-inference/models/sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2/pipeline/feature-extraction"`
	HFMaxRetries int    `envconfig:"HF_MAX_RETRIES" default:"3"`

	// OpenAI (alternate embedding provider, used when set and HF_API_KEY is empty).
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`

	// Semantic search over-fetches this many pages worth of rows for
	// hybrid recall and approximate totals.
	SearchOverfetchFactor int `envconfig:"SEARCH_OVERFETCH_FACTOR" default:"3"`

	BackfillBatchSize  int           `envconfig:"BACKFILL_BATCH_SIZE" default:"20"`
	BackfillBatchDelay time.Duration `envconfig:"BACKFILL_BATCH_DELAY" default:"100ms"`

	// AdminInternalKey guards the operator endpoints (X-Internal-Key header).
	AdminInternalKey string `envconfig:"ADMIN_INTERNAL_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("POKVAULT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasHuggingFace() bool {
	return c.HFAPIKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasEmbeddingProvider reports whether any embedding backend is configured.
func (c *Config) HasEmbeddingProvider() bool {
	return c.HasHuggingFace() || c.HasOpenAI()
}
