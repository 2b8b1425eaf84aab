// Package syncstate brings a collection's vector index into agreement with
// its file contents. The package identifier is syncstate,
// not sync, so that files needing both this package and the standard
// library's sync package in the same import block don't collide.
package syncstate

import (
	"time"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

// State is one value of a collection's sync status enum.
type State string

const (
	StateNeverSynced State = "never_synced"
	StateInSync      State = "in_sync"
	StateOutOfSync   State = "out_of_sync"
	StateSyncing     State = "syncing"
	StateError       State = "error"
)

// Status is the protocol-agnostic view of a collection's sync state,
// returned by Enable/Status/ListStatuses/SyncNow.
type Status struct {
	CollectionID     string     `json:"collection_id"`
	State            State      `json:"state"`
	FilesTotal       int        `json:"files_total"`
	FilesProcessed   int        `json:"files_processed"`
	ChunksAdded      int        `json:"chunks_added"`
	ChunksRemoved    int        `json:"chunks_removed"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	ModelFingerprint string     `json:"model_fingerprint,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
}

// Embedder is the subset of the embedding provider the coordinator needs:
// batch embedding plus the fingerprint identifying the model that produced
// a batch, used to decide whether a sync must be a full re-embed.
type Embedder interface {
	vectorstore.Embedder
	Fingerprint() vectorstore.ModelFingerprint
}
