package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// CreateCollection creates a new, empty collection.
func (u *UseCases) CreateCollection(ctx context.Context, in CreateCollectionInput) (collections.Collection, error) {
	if err := collections.ValidateName(in.Name); err != nil {
		return collections.Collection{}, err
	}
	return u.container.Collections().CreateCollection(ctx, in.Name, in.Description)
}

// ListCollections returns every collection.
func (u *UseCases) ListCollections(ctx context.Context) ([]collections.Collection, error) {
	return u.container.Collections().ListCollections(ctx)
}

// GetCollection returns one collection by id.
func (u *UseCases) GetCollection(ctx context.Context, in GetCollectionInput) (collections.Collection, error) {
	return u.container.Collections().GetCollection(ctx, in.CollectionID)
}

// DeleteCollection removes a collection and cascades to its files, chunks,
// and embedding records. Sync state for the collection is dropped too so a later
// collection of the same name starts with zero sync history. If the vector
// store is unreachable, the orphaned embedding records are recorded as a
// pending deletion and retried by the sync coordinator once the store is
// reachable again.
func (u *UseCases) DeleteCollection(ctx context.Context, in GetCollectionInput) error {
	if err := u.container.Collections().DeleteCollection(ctx, in.CollectionID); err != nil {
		return err
	}
	if err := u.container.VectorStore().DeleteByCollection(ctx, in.CollectionID); err != nil {
		u.container.Logger().Warn("vector cleanup failed on collection delete, deferring",
			zap.String("collection_id", in.CollectionID), zap.Error(err))
		if recErr := u.container.SyncStatuses().RecordPendingVectorDeletion(ctx, in.CollectionID); recErr != nil {
			u.container.Logger().Error("failed to record pending vector deletion",
				zap.String("collection_id", in.CollectionID), zap.Error(recErr))
		}
	}
	_ = u.container.Sync().Disable(ctx, in.CollectionID)
	return nil
}

// ReconcileCollection triggers an on-demand reconciliation of one
// collection's directory against the metadata index. Only the filesystem
// storage backend has external edits to reconcile; under the embedded-db
// backend this is a validation error.
func (u *UseCases) ReconcileCollection(ctx context.Context, in GetCollectionInput) error {
	rec := u.container.Reconciler()
	if rec == nil {
		return kberrors.Validation("reconcile_unsupported", "reconciliation requires the filesystem storage backend")
	}
	if _, err := u.container.Collections().GetCollection(ctx, in.CollectionID); err != nil {
		return err
	}
	if err := rec.ReconcileCollection(ctx, in.CollectionID); err != nil {
		return kberrors.Storage("", "reconcile collection", err)
	}
	return nil
}
