package fsstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
)

// ReconcilerConfig configures periodic and on-demand filesystem
// reconciliation: a Start/Stop ticker lifecycle with mutex-guarded
// last-result state, diffing the filesystem against the sidecar index.
type ReconcilerConfig struct {
	// Interval between full filesystem scans. Default: 5 minutes.
	Interval time.Duration
}

// Reconciler walks a store's collection directories on a timer (and on
// fsnotify events, as an early trigger) and reconciles the sidecar
// database's file rows against what's actually on disk: files added or
// edited outside the API are picked up, and files deleted outside the API
// are dropped from the index.
type Reconciler struct {
	store  *Store
	config ReconcilerConfig
	logger *zap.Logger
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	running bool
	lastErr error

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReconciler builds a Reconciler for store. It is safe to construct
// even if the store root doesn't support fsnotify (e.g. some network
// filesystems); watcher setup failures only disable the early-trigger
// path, not periodic scanning.
func NewReconciler(st *Store, config ReconcilerConfig, logger *zap.Logger) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		watcher = nil
	} else if addErr := watcher.Add(st.root); addErr != nil {
		_ = watcher.Close()
		watcher = nil
	}
	return &Reconciler{
		store:   st,
		config:  config,
		logger:  logger,
		watcher: watcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins periodic reconciliation in the background. Returns
// immediately.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	go r.run(ctx)
}

// Stop halts the background reconciler and waits for it to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
	if r.watcher != nil {
		_ = r.watcher.Close()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	r.scanAll(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	if r.watcher != nil {
		events = r.watcher.Events
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.scanAll(ctx)
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.scanAll(ctx)
		}
	}
}

func (r *Reconciler) scanAll(ctx context.Context) {
	cols, err := r.store.ListCollections(ctx)
	if err != nil {
		r.recordErr(err)
		return
	}
	for _, c := range cols {
		if err := r.ReconcileCollection(ctx, c.ID); err != nil {
			r.recordErr(err)
		}
	}
}

// ReconcileCollection diffs one collection's directory against its
// sidecar rows and brings the rows in line with the filesystem: new files
// are inserted, changed files get a refreshed hash/size/updated_at, and
// files no longer on disk are removed from the index. It is exported so
// it can back the on-demand reconcile_collection operation,
// not just the periodic scan.
func (r *Reconciler) ReconcileCollection(ctx context.Context, collectionID string) error {
	onDisk := map[string]os.FileInfo{}
	root := r.store.collectionDir(collectionID)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		onDisk[filepath.ToSlash(rel)] = info
		return nil
	})
	if err != nil {
		return err
	}

	indexed, err := r.store.ListFiles(ctx, collectionID)
	if err != nil {
		return err
	}
	indexedByRel := map[string]collections.File{}
	for _, f := range indexed {
		rel := f.Name
		if f.Folder != "" {
			rel = f.Folder + "/" + f.Name
		}
		indexedByRel[rel] = f
	}

	for rel, info := range onDisk {
		folder, name := splitRel(rel)
		existing, found := indexedByRel[rel]
		content, readErr := os.ReadFile(filepath.Join(root, rel))
		if readErr != nil {
			continue
		}
		hash := hashBytes(content)
		if !found || existing.ContentHash != hash || existing.Size != info.Size() {
			if _, err := r.store.SaveFile(ctx, collectionID, folder, name, string(content), existing.SourceURL); err != nil {
				r.logger.Warn("reconcile: failed to index file",
					zap.String("collection_id", collectionID), zap.String("path", rel), zap.Error(err))
			}
		}
	}

	for rel := range indexedByRel {
		if _, stillOnDisk := onDisk[rel]; !stillOnDisk {
			folder, name := splitRel(rel)
			if err := r.store.DeleteFile(ctx, collectionID, folder, name); err != nil {
				r.logger.Warn("reconcile: failed to drop missing file",
					zap.String("collection_id", collectionID), zap.String("path", rel), zap.Error(err))
			}
		}
	}

	return nil
}

func (r *Reconciler) recordErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	r.logger.Warn("reconciliation scan failed", zap.Error(err))
}

// LastError returns the most recent scan error, if any.
func (r *Reconciler) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func splitRel(rel string) (folder, name string) {
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return "", rel
	}
	return rel[:idx], rel[idx+1:]
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
