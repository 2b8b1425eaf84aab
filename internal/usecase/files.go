package usecase

import (
	"context"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
)

// SaveFile creates or overwrites a file inside a collection. Validation happens before any I/O.
func (u *UseCases) SaveFile(ctx context.Context, in SaveFileInput) (collections.File, error) {
	folder := collections.CleanFolder(in.Folder)
	if err := collections.ValidatePath(folder, in.Name); err != nil {
		return collections.File{}, err
	}
	return u.container.Collections().SaveFile(ctx, in.CollectionID, folder, in.Name, in.Content, in.SourceURL)
}

// ReadFile returns one file's full content.
func (u *UseCases) ReadFile(ctx context.Context, in FileKeyInput) (collections.File, error) {
	folder := collections.CleanFolder(in.Folder)
	if err := collections.ValidatePath(folder, in.Name); err != nil {
		return collections.File{}, err
	}
	return u.container.Collections().ReadFile(ctx, in.CollectionID, folder, in.Name)
}

// UpdateFile applies a partial update to an existing file.
func (u *UseCases) UpdateFile(ctx context.Context, in UpdateFileInput) (collections.File, error) {
	folder := collections.CleanFolder(in.Folder)
	if err := collections.ValidatePath(folder, in.Name); err != nil {
		return collections.File{}, err
	}
	return u.container.Collections().UpdateFile(ctx, in.CollectionID, folder, in.Name, store.FileUpdate{
		Content:   in.Content,
		SourceURL: in.SourceURL,
	})
}

// DeleteFile removes one file. Its chunks' stale
// embedding records, if any were ever synced, are cleaned up by the next
// sync's "removed" diff rather than here: the
// vector index is allowed to lag the filesystem between syncs.
func (u *UseCases) DeleteFile(ctx context.Context, in FileKeyInput) error {
	folder := collections.CleanFolder(in.Folder)
	if err := collections.ValidatePath(folder, in.Name); err != nil {
		return err
	}
	return u.container.Collections().DeleteFile(ctx, in.CollectionID, folder, in.Name)
}

// ListFiles returns every file in a collection, content omitted.
func (u *UseCases) ListFiles(ctx context.Context, in ListFilesInput) ([]collections.File, error) {
	return u.container.Collections().ListFiles(ctx, in.CollectionID)
}
