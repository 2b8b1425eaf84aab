package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsUnknownStorageType(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = "rel/not-absolute"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownVectorProvider(t *testing.T) {
	cfg := Default()
	cfg.VectorStore.Provider = "pinecone"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsIncompleteLLM(t *testing.T) {
	cfg := Default()
	cfg.LLM.Enabled = true
	cfg.LLM.Model = ""
	require.Error(t, cfg.Validate())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("STORAGE_TYPE", "filesystem")
	t.Setenv("QUERY_MAX_QUERY_VARIANTS", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "filesystem", cfg.Storage.Type)
	require.Equal(t, 5, cfg.Query.MaxQueryVariants)
	// Unset env vars keep their hardcoded defaults.
	require.Equal(t, "chromem", cfg.VectorStore.Provider)
}

func TestLoadRejectsConfigFileOutsideAllowedDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	outside := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("storage:\n  type: filesystem\n"), 0600))

	_, err := Load(outside)
	require.Error(t, err)
}

func TestLoadRejectsWorldReadableConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "crawl4ai-core")
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  type: filesystem\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "crawl4ai-core")
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  type: filesystem\n  fs_root: /tmp/kb\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "filesystem", cfg.Storage.Type)
	require.Equal(t, "/tmp/kb", cfg.Storage.FSRoot)
}

func TestValidateRejectsOutOfRangeFields(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTPPort = 70000
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Chunking.ChunkOverlapRatio = 0.5
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Chunking.Strategy = "clever"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Query.SimilarityThreshold = 1.5
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsAbsolutePathStorageType(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = "/var/lib/crawl4ai-core/collections"
	require.NoError(t, cfg.Validate())
}

func TestLoadHonorsCollectionStorageTypeAlias(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("COLLECTION_STORAGE_TYPE", "filesystem")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "filesystem", cfg.Storage.Type)
}
