package usecase

import (
	"context"

	syncstate "github.com/fwegener83/crawl4ai-mcp-server/internal/sync"
)

// EnableSync creates the never_synced status record for a collection.
func (u *UseCases) EnableSync(ctx context.Context, in CollectionIDInput) (SyncStatusResult, error) {
	return u.container.Sync().Enable(ctx, in.CollectionID)
}

// DisableSync removes all persisted sync state for a collection.
func (u *UseCases) DisableSync(ctx context.Context, in CollectionIDInput) error {
	return u.container.Sync().Disable(ctx, in.CollectionID)
}

// SyncNow runs the incremental sync algorithm for a collection.
func (u *UseCases) SyncNow(ctx context.Context, in CollectionIDInput) (SyncStatusResult, error) {
	ctx, span := u.tracer.Start(ctx, "usecase.SyncNow")
	defer span.End()
	return u.container.Sync().SyncNow(ctx, in.CollectionID)
}

// SyncStatus returns a collection's sync status.
func (u *UseCases) SyncStatus(ctx context.Context, in CollectionIDInput) (SyncStatusResult, error) {
	return u.container.Sync().Status(ctx, in.CollectionID)
}

// ListSyncStatuses returns the sync status of every collection that has
// ever had sync enabled.
func (u *UseCases) ListSyncStatuses(ctx context.Context) ([]syncstate.Status, error) {
	return u.container.Sync().ListStatuses(ctx)
}

// DeleteVectors removes every embedding for a collection and resets its
// sync status.
func (u *UseCases) DeleteVectors(ctx context.Context, in CollectionIDInput) error {
	return u.container.Sync().DeleteVectors(ctx, in.CollectionID)
}
