package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from an optional YAML file, then overrides with
// environment variables: defaults -> YAML file -> environment, environment
// wins.
//
// An empty configPath resolves to ~/.config/crawl4ai-core/config.yaml. Env
// vars are split on the first underscore into "section.field", e.g.
// STORAGE_TYPE -> storage.type, QUERY_MAX_QUERY_VARIANTS ->
// query.max_query_variants.
func Load(configPath string) (Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "crawl4ai-core", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return Config{}, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return Config{}, fmt.Errorf("stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return Config{}, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformer), nil); err != nil {
		return Config{}, fmt.Errorf("load environment variables: %w", err)
	}

	// COLLECTION_STORAGE_TYPE is the documented name for backend
	// selection; the generic SECTION_FIELD split can't express it.
	if v := os.Getenv("COLLECTION_STORAGE_TYPE"); v != "" {
		if err := k.Set("storage.type", v); err != nil {
			return Config{}, fmt.Errorf("apply COLLECTION_STORAGE_TYPE: %w", err)
		}
	}
	// VECTOR_STORE_PROVIDER has the same two-word-section problem.
	if v := os.Getenv("VECTOR_STORE_PROVIDER"); v != "" {
		if err := k.Set("vectorstore.provider", v); err != nil {
			return Config{}, fmt.Errorf("apply VECTOR_STORE_PROVIDER: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformer splits SECTION_FIELD_NAME on the first underscore into
// "section.field_name" so koanf's dotted unmarshal targets the right
// nested struct.
func envTransformer(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// EnsureConfigDir creates the default config directory if it doesn't exist.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "crawl4ai-core")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath restricts config files to the conventional
// per-user and system config directories, resolving symlinks first to
// block path-traversal via a symlinked file.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	allowedDirs := []string{
		filepath.Join(home, ".config", "crawl4ai-core"),
		"/etc/crawl4ai-core",
	}
	for _, dir := range allowedDirs {
		if strings.HasPrefix(resolvedPath, dir) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/crawl4ai-core/ or /etc/crawl4ai-core/")
}

// validateConfigFileProperties rejects world/group-readable config files
// and files larger than the size cap, using the already-opened file's
// FileInfo to avoid a TOCTOU race against a second stat.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
