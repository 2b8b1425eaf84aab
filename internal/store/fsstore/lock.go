package fsstore

import (
	"github.com/gofrs/flock"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// flockHandle guards a store root across process restarts: two processes
// must not run a Reconciler and serve writes against the same root
// concurrently, since both keep in-memory assumptions about the sidecar
// database's consistency with the filesystem.
type flockHandle struct {
	fl *flock.Flock
}

func acquireLock(path string) (*flockHandle, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, kberrors.Storage("", "acquire store lock", err)
	}
	if !locked {
		return nil, kberrors.Conflict(kberrors.CodeSyncInProgress, "store root is already locked by another process")
	}
	return &flockHandle{fl: fl}, nil
}

func (h *flockHandle) Release() error {
	if h.fl == nil {
		return nil
	}
	return h.fl.Unlock()
}
