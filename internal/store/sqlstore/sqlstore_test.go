package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetCollection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateCollection(ctx, "My Notes", "personal notes")
	require.NoError(t, err)
	assert.Equal(t, "my_notes", c.ID)

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, 0, got.FileCount)
}

func TestCreateCollectionDuplicateNameConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)

	_, err = s.CreateCollection(ctx, "docs", "")
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindConflict))
}

func TestGetCollectionNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetCollection(ctx, "missing")
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindNotFound))
}

func TestSaveReadUpdateDeleteFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)

	f, err := s.SaveFile(ctx, c.ID, "guides", "intro.md", "# Hello", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "guides", f.Folder)
	assert.NotEmpty(t, f.ContentHash)

	read, err := s.ReadFile(ctx, c.ID, "guides", "intro.md")
	require.NoError(t, err)
	assert.Equal(t, "# Hello", read.Content)

	updated := "# Hello, updated"
	out, err := s.UpdateFile(ctx, c.ID, "guides", "intro.md", store.FileUpdate{Content: &updated})
	require.NoError(t, err)
	assert.Equal(t, updated, out.Content)

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FileCount)
	assert.Equal(t, int64(len(updated)), got.TotalSize)

	require.NoError(t, s.DeleteFile(ctx, c.ID, "guides", "intro.md"))
	_, err = s.ReadFile(ctx, c.ID, "guides", "intro.md")
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindNotFound))
}

func TestListFilesOrderedByFolderThenName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)

	_, err = s.SaveFile(ctx, c.ID, "", "z.md", "z", "")
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, c.ID, "a", "a.md", "a", "")
	require.NoError(t, err)

	files, err := s.ListFiles(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "", files[0].Folder)
	assert.Equal(t, "a", files[1].Folder)
}

func TestDeleteCollectionCascadesFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, c.ID, "", "a.md", "a", "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteCollection(ctx, c.ID))

	_, err = s.GetCollection(ctx, c.ID)
	require.Error(t, err)
}
