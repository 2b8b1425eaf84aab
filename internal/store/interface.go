// Package store defines the collection storage interface shared by both
// backends: an embedded relational store (sqlstore) and a
// filesystem-plus-sidecar store (fsstore). Callers never see which backend
// is in use; backend selection happens once, at service-container
// construction time, from config.
package store

import (
	"context"
	"time"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
)

// FileUpdate carries the mutable fields of a file update. Zero-value
// pointers mean "leave unchanged".
type FileUpdate struct {
	Content   *string
	SourceURL *string
}

// CollectionStore is the storage contract for collections and their files.
// Both backends must provide identical semantics for every method: the
// caller (internal/usecase) must not need to know which one is active.
type CollectionStore interface {
	// CreateCollection creates a new, empty collection. Returns
	// kberrors.KindConflict if a collection with the same derived id
	// already exists.
	CreateCollection(ctx context.Context, name, description string) (collections.Collection, error)

	// ListCollections returns every collection, ordered by name.
	ListCollections(ctx context.Context) ([]collections.Collection, error)

	// GetCollection returns one collection by id. Returns
	// kberrors.KindNotFound if it doesn't exist.
	GetCollection(ctx context.Context, id string) (collections.Collection, error)

	// DeleteCollection removes a collection and every file inside it.
	DeleteCollection(ctx context.Context, id string) error

	// SaveFile creates or overwrites a file at (folder, name) within a
	// collection and bumps the owning collection's file_count/total_size.
	SaveFile(ctx context.Context, collectionID, folder, name, content, sourceURL string) (collections.File, error)

	// ReadFile returns one file's full record, including content.
	ReadFile(ctx context.Context, collectionID, folder, name string) (collections.File, error)

	// UpdateFile applies a partial update to an existing file.
	UpdateFile(ctx context.Context, collectionID, folder, name string, update FileUpdate) (collections.File, error)

	// DeleteFile removes one file and bumps the owning collection's
	// file_count/total_size.
	DeleteFile(ctx context.Context, collectionID, folder, name string) error

	// ListFiles returns every file in a collection, content omitted,
	// ordered by folder then name.
	ListFiles(ctx context.Context, collectionID string) ([]collections.File, error)

	// Close releases any held resources (database handles, lock files).
	Close() error
}

// FileSnapshot is one file's content-hash snapshot as of the last
// successful sync batch that processed it.
type FileSnapshot struct {
	FileID      string
	ContentHash string
	SyncedAt    time.Time
	// ChunkIDs are the embedding-record chunk ids produced from this
	// file's content at SyncedAt, so a later sync can delete exactly
	// those records without re-chunking stale content.
	ChunkIDs []string
}

// SyncStatusRecord is the persisted per-collection sync status, plus the
// per-file snapshots used for incremental diffing.
type SyncStatusRecord struct {
	State            string
	StartedAt        *time.Time
	FinishedAt       *time.Time
	FilesTotal       int
	FilesProcessed   int
	ChunksAdded      int
	ChunksRemoved    int
	ModelFingerprint string
	LastError        string
	Snapshots        map[string]FileSnapshot // keyed by FileID
}

// SyncStatusStore persists sync status alongside a CollectionStore
// backend. Both sqlstore and fsstore implement it against the same
// sync_status/sync_file_snapshots tables their respective schemas carry,
// so the sync coordinator can treat either backend identically.
type SyncStatusStore interface {
	// LoadSyncStatus returns the persisted status for a collection.
	// ok is false if no sync has ever been enabled for it.
	LoadSyncStatus(ctx context.Context, collectionID string) (rec SyncStatusRecord, ok bool, err error)

	// SaveSyncStatus atomically replaces the persisted status (including
	// snapshots) for a collection.
	SaveSyncStatus(ctx context.Context, collectionID string, rec SyncStatusRecord) error

	// DeleteSyncStatus removes all persisted sync state for a collection
	// (called when sync is disabled or the collection is deleted).
	DeleteSyncStatus(ctx context.Context, collectionID string) error

	// ListSyncStatuses returns every collection id that has sync state,
	// for list_statuses.
	ListSyncStatuses(ctx context.Context) ([]string, error)

	// RecordPendingVectorDeletion remembers that a deleted collection's
	// embedding records could not be removed because the vector store was
	// unreachable, so the sync coordinator can retry the deletion later.
	// Idempotent per collection id.
	RecordPendingVectorDeletion(ctx context.Context, collectionID string) error

	// ListPendingVectorDeletions returns every collection id with an
	// outstanding deferred vector deletion.
	ListPendingVectorDeletions(ctx context.Context) ([]string, error)

	// ClearPendingVectorDeletion drops a deferred deletion after the
	// vector store confirmed the records are gone.
	ClearPendingVectorDeletion(ctx context.Context, collectionID string) error
}
