package llm

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// Config configures the hosted langchaingo-backed provider. Same
// BaseURL/Model/APIKey shape as internal/embeddings.Config, since both
// front an OpenAI-compatible endpoint.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	// RateLimit bounds sustained requests per second to the provider,
	// avoiding the service_unavailable churn of provider rate-limit
	// errors under concurrent query-pipeline load.
	RateLimit float64
	Burst     int
}

// ConfigFromEnv builds a Config straight from environment variables, for
// callers that bypass the layered config file.
func ConfigFromEnv() Config {
	baseURL := os.Getenv("LLM_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return Config{BaseURL: baseURL, Model: model, APIKey: os.Getenv("OPENAI_API_KEY")}
}

func (c Config) normalize() Config {
	if c.RateLimit <= 0 {
		c.RateLimit = 2
	}
	if c.Burst <= 0 {
		c.Burst = 4
	}
	return c
}

// LangchainProvider implements Provider against any OpenAI-compatible
// chat-completions endpoint via langchaingo, with a token-bucket
// golang.org/x/time/rate limiter ahead of every request.
type LangchainProvider struct {
	model   llms.Model
	limiter *rate.Limiter
}

var _ Provider = (*LangchainProvider)(nil)

// NewLangchainProvider builds the hosted client. BaseURL/Model/APIKey work
// against OpenAI itself or any OpenAI-compatible gateway.
func NewLangchainProvider(config Config) (*LangchainProvider, error) {
	config = config.normalize()
	if config.BaseURL == "" || config.Model == "" {
		return nil, kberrors.Validation("", "LLM base URL and model required")
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	model, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "create LLM client")
	}

	return &LangchainProvider{
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
	}, nil
}

// Complete waits for rate-limiter capacity, then asks the provider for a
// single-shot completion of prompt.
func (p *LangchainProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", kberrors.Cancelled("cancelled while waiting for LLM rate limit")
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt)
	if err != nil {
		return "", kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "LLM provider failed")
	}
	return text, nil
}
