// Crawl4ai-core is the personal knowledge-base daemon: it ingests web
// content and local documents into named file collections, chunks and
// embeds them into a vector index, and answers queries via
// retrieval-augmented generation, over an MCP stdio tool channel and an
// HTTP/JSON API simultaneously.
//
// Usage:
//
//	# Start the daemon with defaults
//	crawl4ai-core serve
//
//	# Configure via environment
//	STORAGE_TYPE=filesystem SERVER_HTTP_PORT=9090 crawl4ai-core serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/config"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store/fsstore"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store/sqlstore"
)

// Version information (set via ldflags during build).
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "crawl4ai-core",
		Short:         "Personal knowledge-base server with RAG over MCP and HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/crawl4ai-core/config.yaml)")

	root.AddCommand(serveCmd(), migrateCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crawl4ai-core %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		},
	}
}

// migrateCmd opens the configured collection store, which applies any
// outstanding schema migrations, then closes it again. serve does the
// same implicitly; this exists for operators who want migrations applied
// ahead of a rollout.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply collection store schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			st, _, err := openCollectionStore(cfg.Storage)
			if err != nil {
				return err
			}
			return st.Close()
		},
	}
}

// collectionBackend is the combined surface both storage backends
// implement: collection/file CRUD plus sync-status persistence.
type collectionBackend interface {
	store.CollectionStore
	store.SyncStatusStore
}

// openCollectionStore selects and opens the configured backend. The
// second return is non-nil only for the filesystem backend, so serve can
// build a reconciler around it.
func openCollectionStore(cfg config.StorageConfig) (collectionBackend, *fsstore.Store, error) {
	switch cfg.Type {
	case "embedded_db":
		st, err := sqlstore.Open(expandHome(cfg.DBPath))
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case "filesystem":
		st, err := fsstore.Open(expandHome(cfg.FSRoot))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		// Validate() guarantees anything else is an absolute path,
		// treated as a filesystem root.
		st, err := fsstore.Open(cfg.Type)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	}
}

func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
