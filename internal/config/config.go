// Package config loads the configuration surface with layered defaults ->
// YAML file -> environment (environment wins), via koanf.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the complete process configuration.
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	VectorStore VectorStoreConfig
	Embeddings  EmbeddingsConfig
	LLM         LLMConfig
	Query       QueryConfig
	Sync        SyncConfig
	Chunking    ChunkingConfig
	Logging     LoggingConfig
	Telemetry   TelemetryConfig
}

// ServerConfig controls the HTTP adapter's listen address.
type ServerConfig struct {
	HTTPHost string `koanf:"http_host" validate:"required"`
	HTTPPort int    `koanf:"http_port" validate:"gte=1,lte=65535"`
}

// StorageConfig selects and configures the collection store backend.
type StorageConfig struct {
	// Type is "embedded_db", "filesystem", or an absolute path (treated as
	// "filesystem" rooted there).
	Type string `koanf:"type"`
	// DBPath is the embedded_db sqlite file path.
	DBPath string `koanf:"db_path"`
	// FSRoot is the filesystem backend's root directory.
	FSRoot string `koanf:"fs_root"`
	// ReconcileInterval is the filesystem backend's periodic reconciliation
	// cadence.
	ReconcileInterval time.Duration `koanf:"reconcile_interval"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (default, embedded) or "qdrant" (remote).
	Provider string `koanf:"provider"`
	Chromem  struct {
		Path     string `koanf:"path"`
		Compress bool   `koanf:"compress"`
	} `koanf:"chromem"`
	Qdrant struct {
		Host   string `koanf:"host"`
		Port   int    `koanf:"port"`
		UseTLS bool   `koanf:"use_tls"`
	} `koanf:"qdrant"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model"`
	APIKey         string `koanf:"api_key"`
	Dimensionality int    `koanf:"dimensionality"`
}

// LLMConfig configures the optional LLM provider used for query expansion,
// re-ranking, and RAG answers. With Enabled false no LLM is built and every
// caller degrades gracefully; Enabled requires BaseURL and Model to be set.
type LLMConfig struct {
	Enabled   bool    `koanf:"enabled"`
	BaseURL   string  `koanf:"base_url"`
	Model     string  `koanf:"model"`
	APIKey    string  `koanf:"api_key"`
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// QueryConfig carries query pipeline feature flags.
type QueryConfig struct {
	QueryExpansionEnabled   bool          `koanf:"query_expansion_enabled"`
	MaxQueryVariants        int           `koanf:"max_query_variants" validate:"gte=1,lte=10"`
	ExpansionCacheTTL       time.Duration `koanf:"expansion_cache_ttl"`
	AutoRerankingEnabled    bool          `koanf:"auto_reranking_enabled"`
	RerankingThreshold      int           `koanf:"reranking_threshold" validate:"gte=1"`
	SimilarityThreshold     float64       `koanf:"similarity_threshold" validate:"gte=0,lte=1"`
	ContextExpansionEnabled bool          `koanf:"context_expansion_enabled"`
	RAGMaxContextTokens     int           `koanf:"rag_max_context_tokens"`
}

// SyncConfig carries sync coordinator knobs.
type SyncConfig struct {
	MaxFileConcurrency int           `koanf:"max_file_concurrency" validate:"gte=1,lte=64"`
	RetryAttempts      int           `koanf:"retry_attempts" validate:"gte=1,lte=10"`
	RetryBackoffBase   time.Duration `koanf:"retry_backoff_base"`
}

// ChunkingConfig carries chunking knobs.
type ChunkingConfig struct {
	ChunkSize         int     `koanf:"chunk_size" validate:"gte=100,lte=100000"`
	ChunkOverlapRatio float64 `koanf:"chunk_overlap_ratio" validate:"gte=0,lte=0.3"`
	Strategy          string  `koanf:"strategy" validate:"oneof=baseline markdown_intelligent auto"`
}

// LoggingConfig controls the zap logger built by internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	// OTelEnabled tees log records into the otelzap bridge alongside
	// stdout.
	OTelEnabled bool `koanf:"otel_enabled"`
}

// TelemetryConfig controls OTLP trace export, mirrored into
// telemetry.Config at startup.
type TelemetryConfig struct {
	Enabled    bool    `koanf:"enabled"`
	Endpoint   string  `koanf:"endpoint"`
	Insecure   bool    `koanf:"insecure"`
	SampleRate float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`
}

// Default returns the hardcoded defaults every layer starts from, before
// YAML-file and environment overrides are applied.
func Default() Config {
	return Config{
		Server: ServerConfig{HTTPHost: "127.0.0.1", HTTPPort: 8088},
		Storage: StorageConfig{
			Type:              "embedded_db",
			DBPath:            "~/.config/crawl4ai-core/collections.db",
			FSRoot:            "~/.config/crawl4ai-core/collections",
			ReconcileInterval: 5 * time.Minute,
		},
		VectorStore: VectorStoreConfig{
			Provider: "chromem",
			Chromem: struct {
				Path     string `koanf:"path"`
				Compress bool   `koanf:"compress"`
			}{Path: "~/.config/crawl4ai-core/vectorstore", Compress: true},
			Qdrant: struct {
				Host   string `koanf:"host"`
				Port   int    `koanf:"port"`
				UseTLS bool   `koanf:"use_tls"`
			}{Host: "localhost", Port: 6334},
		},
		Embeddings: EmbeddingsConfig{
			BaseURL: "http://localhost:8080/v1",
			Model:   "BAAI/bge-small-en-v1.5",
		},
		LLM: LLMConfig{
			Enabled:   false,
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			RateLimit: 2,
			Burst:     4,
		},
		Query: QueryConfig{
			QueryExpansionEnabled:   false,
			MaxQueryVariants:        3,
			ExpansionCacheTTL:       10 * time.Minute,
			AutoRerankingEnabled:    false,
			RerankingThreshold:      8,
			SimilarityThreshold:     0.5,
			ContextExpansionEnabled: false,
			RAGMaxContextTokens:     3000,
		},
		Sync: SyncConfig{
			MaxFileConcurrency: 4,
			RetryAttempts:      3,
			RetryBackoffBase:   500 * time.Millisecond,
		},
		Chunking: ChunkingConfig{
			ChunkSize:         1000,
			ChunkOverlapRatio: 0.2,
			Strategy:          "markdown_intelligent",
		},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{Enabled: false, SampleRate: 1.0},
	}
}

// Validate rejects configuration combinations that would fail later in a
// confusing way: per-field range and enum checks run through the struct
// tags above, followed by the cross-field rules no tag can express
// (storage.type's absolute-path alternative, LLM enablement).
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	switch c.Storage.Type {
	case "embedded_db", "filesystem":
	default:
		if len(c.Storage.Type) == 0 || c.Storage.Type[0] != '/' {
			return fmt.Errorf("storage.type must be \"embedded_db\", \"filesystem\", or an absolute path, got %q", c.Storage.Type)
		}
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("vector_store.provider must be \"chromem\" or \"qdrant\", got %q", c.VectorStore.Provider)
	}
	if c.LLM.Enabled && (c.LLM.BaseURL == "" || c.LLM.Model == "") {
		return fmt.Errorf("llm.enabled requires llm.base_url and llm.model")
	}
	return nil
}
