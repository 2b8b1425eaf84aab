package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

func TestConfigValidateRequiresBaseURL(t *testing.T) {
	err := Config{Model: "text-embedding-3-small"}.validate()
	assert.True(t, kberrors.Is(err, kberrors.KindValidation))
}

func TestConfigValidateRequiresModel(t *testing.T) {
	err := Config{BaseURL: "http://localhost:8080/v1"}.validate()
	assert.True(t, kberrors.Is(err, kberrors.KindValidation))
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("EMBEDDING_BASE_URL", "")
	t.Setenv("EMBEDDING_MODEL", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Model)
	assert.Empty(t, cfg.APIKey)
}
