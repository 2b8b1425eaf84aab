package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

func TestNewLangchainProviderRequiresModel(t *testing.T) {
	_, err := NewLangchainProvider(Config{BaseURL: "https://api.openai.com/v1"})
	assert.True(t, kberrors.Is(err, kberrors.KindValidation))
}

func TestConfigNormalizeDefaults(t *testing.T) {
	cfg := Config{}.normalize()
	assert.Equal(t, 2.0, cfg.RateLimit)
	assert.Equal(t, 4, cfg.Burst)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
}
