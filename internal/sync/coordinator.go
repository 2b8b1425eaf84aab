package syncstate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/chunking"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/telemetry"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

// Config controls batch concurrency and retry behavior.
type Config struct {
	MaxFileConcurrency int
	RetryAttempts      int
	RetryBackoffBase   time.Duration
	Chunking           chunking.Config
}

func (c Config) normalize() Config {
	if c.MaxFileConcurrency <= 0 {
		c.MaxFileConcurrency = 4
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoffBase <= 0 {
		c.RetryBackoffBase = 500 * time.Millisecond
	}
	return c
}

// Coordinator implements the user-triggered, incremental sync algorithm.
// Per-collection locking guarantees only one sync runs at a
// time for a given collection; syncs of different collections proceed
// concurrently.
type Coordinator struct {
	collections store.CollectionStore
	statuses    store.SyncStatusStore
	vectors     vectorstore.Store
	embedder    Embedder
	cfg         Config
	logger      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator wires a sync coordinator against the service container's
// collection store, vector store, and embedding provider singletons.
func NewCoordinator(collectionStore store.CollectionStore, statusStore store.SyncStatusStore, vectors vectorstore.Store, embedder Embedder, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		collections: collectionStore,
		statuses:    statusStore,
		vectors:     vectors,
		embedder:    embedder,
		cfg:         cfg.normalize(),
		logger:      logger,
		locks:       map[string]*sync.Mutex{},
	}
}

func (c *Coordinator) lockFor(collectionID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[collectionID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[collectionID] = l
	}
	return l
}

// Enable creates the never_synced status record for a collection, if one
// doesn't already exist. Idempotent.
func (c *Coordinator) Enable(ctx context.Context, collectionID string) (Status, error) {
	if _, err := c.collections.GetCollection(ctx, collectionID); err != nil {
		return Status{}, err
	}
	rec, ok, err := c.statuses.LoadSyncStatus(ctx, collectionID)
	if err != nil {
		return Status{}, err
	}
	if ok {
		return toStatus(collectionID, rec), nil
	}
	rec = store.SyncStatusRecord{State: string(StateNeverSynced), Snapshots: map[string]store.FileSnapshot{}}
	if err := c.statuses.SaveSyncStatus(ctx, collectionID, rec); err != nil {
		return Status{}, err
	}
	return toStatus(collectionID, rec), nil
}

// Disable removes all persisted sync state for a collection. It does not
// touch the vector index; use DeleteVectors first if that's also wanted.
func (c *Coordinator) Disable(ctx context.Context, collectionID string) error {
	return c.statuses.DeleteSyncStatus(ctx, collectionID)
}

// DeleteVectors removes every embedding for a collection and resets its
// sync status back to never_synced.
func (c *Coordinator) DeleteVectors(ctx context.Context, collectionID string) error {
	if err := c.vectors.DeleteByCollection(ctx, collectionID); err != nil {
		return err
	}
	rec, ok, err := c.statuses.LoadSyncStatus(ctx, collectionID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	rec.State = string(StateNeverSynced)
	rec.Snapshots = map[string]store.FileSnapshot{}
	rec.ChunksAdded = 0
	rec.ChunksRemoved = 0
	rec.ModelFingerprint = ""
	rec.LastError = ""
	return c.statuses.SaveSyncStatus(ctx, collectionID, rec)
}

// Status returns a collection's persisted sync status, upgraded to
// out_of_sync if the filesystem has moved on since the last completed
// sync. The reconciler itself never writes this state; it's computed
// here, live, from the current file hashes.
func (c *Coordinator) Status(ctx context.Context, collectionID string) (Status, error) {
	rec, ok, err := c.statuses.LoadSyncStatus(ctx, collectionID)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{CollectionID: collectionID, State: StateNeverSynced}, nil
	}
	st := toStatus(collectionID, rec)
	if st.State == StateInSync {
		differs, err := c.filesDiffer(ctx, collectionID, rec.Snapshots)
		if err != nil {
			return Status{}, err
		}
		if differs {
			st.State = StateOutOfSync
		}
	}
	return st, nil
}

// ListStatuses returns the sync status of every collection that has ever
// had sync enabled.
func (c *Coordinator) ListStatuses(ctx context.Context) ([]Status, error) {
	ids, err := c.statuses.ListSyncStatuses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(ids))
	for _, id := range ids {
		st, err := c.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// drainPendingDeletions retries deferred vector deletions recorded when a
// collection was deleted while the vector store was unreachable. Best
// effort: a deletion that fails again simply stays recorded for the next
// sync.
func (c *Coordinator) drainPendingDeletions(ctx context.Context) {
	ids, err := c.statuses.ListPendingVectorDeletions(ctx)
	if err != nil {
		c.logger.Warn("listing pending vector deletions failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := c.vectors.DeleteByCollection(ctx, id); err != nil {
			c.logger.Warn("deferred vector deletion still failing",
				zap.String("collection_id", id), zap.Error(err))
			continue
		}
		if err := c.statuses.ClearPendingVectorDeletion(ctx, id); err != nil {
			c.logger.Warn("clearing pending vector deletion failed",
				zap.String("collection_id", id), zap.Error(err))
		}
	}
}

func (c *Coordinator) filesDiffer(ctx context.Context, collectionID string, snapshots map[string]store.FileSnapshot) (bool, error) {
	files, err := c.collections.ListFiles(ctx, collectionID)
	if err != nil {
		return false, err
	}
	if len(files) != len(snapshots) {
		return true, nil
	}
	for _, f := range files {
		snap, ok := snapshots[f.ID]
		if !ok || snap.ContentHash != f.ContentHash {
			return true, nil
		}
	}
	return false, nil
}

// SyncNow runs one incremental sync: acquire the per-collection lock,
// diff current files against the last snapshot, re-chunk and re-embed
// what changed, delete what's gone, retry per-file on provider error,
// and persist progress after every batch.
func (c *Coordinator) SyncNow(ctx context.Context, collectionID string) (Status, error) {
	lock := c.lockFor(collectionID)
	if !lock.TryLock() {
		return Status{}, kberrors.Conflict(kberrors.CodeSyncInProgress, "sync already running for collection "+collectionID)
	}
	defer lock.Unlock()

	c.drainPendingDeletions(ctx)

	if _, err := c.collections.GetCollection(ctx, collectionID); err != nil {
		return Status{}, err
	}

	rec, ok, err := c.statuses.LoadSyncStatus(ctx, collectionID)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		rec = store.SyncStatusRecord{Snapshots: map[string]store.FileSnapshot{}}
	}
	if rec.Snapshots == nil {
		rec.Snapshots = map[string]store.FileSnapshot{}
	}

	started := time.Now()
	rec.State = string(StateSyncing)
	rec.StartedAt = &started
	rec.LastError = ""
	if err := c.statuses.SaveSyncStatus(ctx, collectionID, rec); err != nil {
		return Status{}, err
	}

	files, err := c.collections.ListFiles(ctx, collectionID)
	if err != nil {
		return Status{}, c.failSync(ctx, collectionID, rec, err)
	}

	fp := c.embedder.Fingerprint()
	fullReembed := rec.ModelFingerprint != "" && rec.ModelFingerprint != fp.String()
	if fullReembed {
		c.logger.Info("embedding model changed, full re-embed", zap.String("collection", collectionID))
		if err := c.vectors.DeleteByCollection(ctx, collectionID); err != nil {
			return Status{}, c.failSync(ctx, collectionID, rec, err)
		}
		rec.Snapshots = map[string]store.FileSnapshot{}
	}

	currentIDs := make(map[string]bool, len(files))
	var toProcess []collections.File
	for _, f := range files {
		currentIDs[f.ID] = true
		snap, existed := rec.Snapshots[f.ID]
		if !existed || snap.ContentHash != f.ContentHash {
			toProcess = append(toProcess, f)
		}
	}

	reprocessIDs := make(map[string]bool, len(toProcess))
	for _, f := range toProcess {
		reprocessIDs[f.ID] = true
	}

	chunksRemoved := 0
	for id, snap := range rec.Snapshots {
		removedEntirely := !currentIDs[id]
		if !removedEntirely && !reprocessIDs[id] {
			continue
		}
		if len(snap.ChunkIDs) > 0 {
			if err := c.vectors.DeleteByChunkIDs(ctx, collectionID, snap.ChunkIDs); err != nil {
				return Status{}, c.failSync(ctx, collectionID, rec, err)
			}
			chunksRemoved += len(snap.ChunkIDs)
		}
		if removedEntirely {
			delete(rec.Snapshots, id)
		}
	}

	newSnapshots, chunksAdded, fileErrors, cancelled := c.processBatch(ctx, collectionID, toProcess, fp)
	for id, snap := range newSnapshots {
		rec.Snapshots[id] = snap
	}

	rec.FilesTotal = len(files)
	rec.FilesProcessed = len(newSnapshots)
	rec.ChunksAdded += chunksAdded
	rec.ChunksRemoved += chunksRemoved
	rec.ModelFingerprint = fp.String()
	finished := time.Now()
	rec.FinishedAt = &finished

	switch {
	case cancelled:
		rec.State = string(StateOutOfSync)
		rec.LastError = "sync cancelled before completion"
	case len(fileErrors) > 0:
		rec.State = string(StateError)
		rec.LastError = summarizeFileErrors(fileErrors)
	default:
		rec.State = string(StateInSync)
	}

	if err := c.statuses.SaveSyncStatus(ctx, collectionID, rec); err != nil {
		return Status{}, err
	}
	telemetry.SyncRunsTotal.WithLabelValues(rec.State).Inc()
	telemetry.SyncFilesProcessed.Add(float64(len(newSnapshots)))
	return toStatus(collectionID, rec), nil
}

// failSync persists a terminal error state and returns the error that
// caused it, used for failures that happen before any per-file batch runs.
func (c *Coordinator) failSync(ctx context.Context, collectionID string, rec store.SyncStatusRecord, cause error) error {
	rec.State = string(StateError)
	rec.LastError = cause.Error()
	finished := time.Now()
	rec.FinishedAt = &finished
	_ = c.statuses.SaveSyncStatus(ctx, collectionID, rec)
	return cause
}

// processBatch embeds and upserts every file in toProcess with bounded
// concurrency. One file's failure, after exhausting retries, is recorded
// and does not abort the batch; context cancellation
// does abort it, leaving already-committed files' snapshots in place.
func (c *Coordinator) processBatch(ctx context.Context, collectionID string, files []collections.File, fp vectorstore.ModelFingerprint) (map[string]store.FileSnapshot, int, map[string]string, bool) {
	if len(files) == 0 {
		return map[string]store.FileSnapshot{}, 0, nil, false
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxFileConcurrency)

	var mu sync.Mutex
	snapshots := map[string]store.FileSnapshot{}
	fileErrors := map[string]string{}
	chunksAdded := 0

	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunkIDs, err := c.syncFile(gctx, collectionID, f, fp)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				fileErrors[f.ID] = err.Error()
				mu.Unlock()
				return nil
			}
			mu.Lock()
			snapshots[f.ID] = store.FileSnapshot{
				FileID:      f.ID,
				ContentHash: f.ContentHash,
				SyncedAt:    time.Now(),
				ChunkIDs:    chunkIDs,
			}
			chunksAdded += len(chunkIDs)
			mu.Unlock()
			return nil
		})
	}

	cancelled := g.Wait() != nil
	return snapshots, chunksAdded, fileErrors, cancelled
}

// syncFile re-chunks, embeds, and upserts one file, retrying the embedding
// call with exponential backoff, starting at cfg.RetryBackoffBase, on any
// provider error.
func (c *Coordinator) syncFile(ctx context.Context, collectionID string, f collections.File, fp vectorstore.ModelFingerprint) ([]string, error) {
	full, err := c.collections.ReadFile(ctx, collectionID, f.Folder, f.Name)
	if err != nil {
		return nil, err
	}

	chunks := chunking.Split(collectionID, f.ID, full.Content, c.cfg.Chunking)
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBackoffBase
	vectors, err := backoff.Retry(ctx, func() ([][]float32, error) {
		return c.embedder.EmbedDocuments(ctx, texts)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(c.cfg.RetryAttempts)))
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "embedding provider failed for file "+f.ID)
	}
	if len(vectors) != len(chunks) {
		return nil, kberrors.Internal("", "embedding provider returned mismatched vector count", nil)
	}

	records := make([]vectorstore.EmbeddingRecord, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		meta, err := vectorstore.NormalizeChunkMetadata(ch)
		if err != nil {
			return nil, err
		}
		records[i] = vectorstore.EmbeddingRecord{ChunkID: ch.ID, Vector: vectors[i], Metadata: meta, Fingerprint: fp}
		ids[i] = ch.ID
	}

	if err := c.vectors.UpsertEmbeddings(ctx, collectionID, records); err != nil {
		return nil, err
	}
	return ids, nil
}

func toStatus(collectionID string, rec store.SyncStatusRecord) Status {
	return Status{
		CollectionID:     collectionID,
		State:            State(rec.State),
		FilesTotal:       rec.FilesTotal,
		FilesProcessed:   rec.FilesProcessed,
		ChunksAdded:      rec.ChunksAdded,
		ChunksRemoved:    rec.ChunksRemoved,
		StartedAt:        rec.StartedAt,
		FinishedAt:       rec.FinishedAt,
		ModelFingerprint: rec.ModelFingerprint,
		LastError:        rec.LastError,
	}
}

func summarizeFileErrors(fileErrors map[string]string) string {
	parts := make([]string, 0, len(fileErrors))
	for id, msg := range fileErrors {
		parts = append(parts, id+": "+msg)
	}
	return strings.Join(parts, "; ")
}
