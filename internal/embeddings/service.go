// Package embeddings generates vector embeddings for chunk text via
// langchaingo, against any OpenAI-compatible endpoint (a local TEI server
// or the OpenAI API itself), extended with a ModelFingerprint so
// internal/sync can detect a model change and trigger a full re-embed.
package embeddings

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

// Config holds configuration for the embedding service, with Dimensionality
// as an optional override for providers whose vector size can't be
// trusted to a one-time probe call at startup (e.g. a provider with
// per-request model selection).
type Config struct {
	// BaseURL is the embedding API's base URL. For TEI:
	// http://localhost:8080/v1. For OpenAI: https://api.openai.com/v1.
	BaseURL string
	// Model is the embedding model name.
	Model string
	// APIKey authenticates against the provider; optional for TEI.
	APIKey string
	// Dimensionality overrides the probed vector size, when known ahead
	// of time. Zero means "probe on NewService".
	Dimensionality int
}

// ConfigFromEnv builds a Config straight from environment variables, for
// callers that bypass the layered config file.
func ConfigFromEnv() Config {
	baseURL := os.Getenv("EMBEDDING_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "BAAI/bge-small-en-v1.5"
	}
	return Config{BaseURL: baseURL, Model: model, APIKey: os.Getenv("OPENAI_API_KEY")}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return kberrors.Validation("", "embedding base URL required")
	}
	if c.Model == "" {
		return kberrors.Validation("", "embedding model required")
	}
	return nil
}

// Service implements vectorstore.Embedder (and syncstate.Embedder, via
// Fingerprint) on top of langchaingo's OpenAI-compatible client.
type Service struct {
	embedder    *embeddings.EmbedderImpl
	fingerprint vectorstore.ModelFingerprint
}

var _ vectorstore.Embedder = (*Service)(nil)

// NewService builds the langchaingo client and, unless Config.Dimensionality
// is set, probes it once with a short text to learn the vector size that
// populates the service's ModelFingerprint.
func NewService(ctx context.Context, config Config) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a non-empty token even against TEI, which
		// doesn't check it.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "create embedding client")
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "create embedder")
	}

	dim := config.Dimensionality
	if dim == 0 {
		probe, err := embedder.EmbedQuery(ctx, "dimensionality probe")
		if err != nil {
			return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "probe embedding dimensionality")
		}
		dim = len(probe)
	}

	return &Service{
		embedder:    embedder,
		fingerprint: vectorstore.ModelFingerprint{ModelName: config.Model, Dimensionality: dim},
	}, nil
}

// EmbedDocuments embeds a batch of chunk texts.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, kberrors.Validation("", "no texts to embed")
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "embedding provider failed")
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string for similarity search.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "embedding provider failed")
	}
	return vector, nil
}

// Fingerprint identifies the model and vector size this service produces,
// consumed by internal/sync to detect a model change across sync runs.
func (s *Service) Fingerprint() vectorstore.ModelFingerprint {
	return s.fingerprint
}
