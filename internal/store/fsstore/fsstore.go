// Package fsstore implements internal/store.CollectionStore by keeping file
// content on disk under a configured root directory, with a
// modernc.org/sqlite sidecar database holding the same logical metadata
// schema as sqlstore (collections, files, sync_status). This is the
// "filesystem" collection storage backend, intended for
// collections a user wants to browse and edit directly with other tools.
package fsstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
)

const sidecarFileName = ".crawl4ai-index.db"

// Store is the filesystem-backed collection store. File content is the
// on-disk file at contentPath(collectionID, folder, name); everything else
// (collection/file metadata, size, hashes, timestamps) lives in the
// sidecar sqlite database so listing and lookups don't require walking the
// tree on every call.
type Store struct {
	root string
	db   *sql.DB
	lock *flockHandle
}

var _ store.CollectionStore = (*Store)(nil)

// Open opens (creating if necessary) a filesystem store rooted at root.
// The sidecar database and a process-lifetime flock both live at root.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, kberrors.Storage("", "create store root", err)
	}

	lock, err := acquireLock(filepath.Join(root, sidecarFileName+".lock"))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(root, sidecarFileName)+"?_pragma=busy_timeout(5000)")
	if err != nil {
		_ = lock.Release()
		return nil, kberrors.Storage("", "open sidecar database", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			_ = lock.Release()
			return nil, kberrors.Storage("", "configure sidecar database", err)
		}
	}
	if err := migrateSidecar(db); err != nil {
		_ = db.Close()
		_ = lock.Release()
		return nil, kberrors.Storage("", "migrate sidecar database", err)
	}

	return &Store{root: root, db: db, lock: lock}, nil
}

func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Release()
	if dbErr != nil {
		return kberrors.Storage("", "close sidecar database", dbErr)
	}
	return lockErr
}

func (s *Store) collectionDir(collectionID string) string {
	return filepath.Join(s.root, collectionID)
}

func (s *Store) contentPath(collectionID, folder, name string) string {
	if folder == "" {
		return filepath.Join(s.collectionDir(collectionID), name)
	}
	return filepath.Join(s.collectionDir(collectionID), folder, name)
}

func (s *Store) CreateCollection(ctx context.Context, name, description string) (collections.Collection, error) {
	if err := collections.ValidateName(name); err != nil {
		return collections.Collection{}, err
	}
	id := collections.Sanitize(name)
	ts := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, description, ts.Format(time.RFC3339Nano), ts.Format(time.RFC3339Nano))
	if isUniqueViolation(err) {
		return collections.Collection{}, kberrors.Conflict(kberrors.CodeDuplicateName, "a collection with this name already exists")
	}
	if err != nil {
		return collections.Collection{}, kberrors.Storage("", "create collection record", err)
	}

	if err := os.MkdirAll(s.collectionDir(id), 0o755); err != nil {
		return collections.Collection{}, kberrors.Storage("", "create collection directory", err)
	}

	return collections.Collection{ID: id, Name: name, Description: description, CreatedAt: ts, UpdatedAt: ts}, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]collections.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		       COUNT(f.id), COALESCE(SUM(f.size), 0)
		FROM collections c LEFT JOIN files f ON f.collection_id = c.id
		GROUP BY c.id ORDER BY c.name`)
	if err != nil {
		return nil, kberrors.Storage("", "list collections", err)
	}
	defer rows.Close()

	var out []collections.Collection
	for rows.Next() {
		c, err := scanCollectionAggregate(rows)
		if err != nil {
			return nil, kberrors.Storage("", "scan collection", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCollection(ctx context.Context, id string) (collections.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		       COUNT(f.id), COALESCE(SUM(f.size), 0)
		FROM collections c LEFT JOIN files f ON f.collection_id = c.id
		WHERE c.id = ? GROUP BY c.id`, id)
	c, err := scanCollectionAggregate(row)
	if err == sql.ErrNoRows {
		return collections.Collection{}, kberrors.NotFound(kberrors.CodeCollectionNotFound, "collection not found: "+id)
	}
	if err != nil {
		return collections.Collection{}, kberrors.Storage("", "get collection", err)
	}
	return c, nil
}

func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return kberrors.Storage("", "delete collection record", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kberrors.NotFound(kberrors.CodeCollectionNotFound, "collection not found: "+id)
	}
	if err := os.RemoveAll(s.collectionDir(id)); err != nil {
		return kberrors.Storage("", "remove collection directory", err)
	}
	return nil
}

func (s *Store) SaveFile(ctx context.Context, collectionID, folder, name, content, sourceURL string) (collections.File, error) {
	if err := collections.ValidatePath(folder, name); err != nil {
		return collections.File{}, err
	}
	folder = collections.CleanFolder(folder)

	if _, err := s.GetCollection(ctx, collectionID); err != nil {
		return collections.File{}, err
	}

	path := s.contentPath(collectionID, folder, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return collections.File{}, kberrors.Storage("", "create file directory", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return collections.File{}, kberrors.Storage("", "write file content", err)
	}

	now := time.Now().UTC()
	hash := contentHash(content)
	size := int64(len(content))
	id := fileID(collectionID, folder, name)

	var existingID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM files WHERE collection_id = ? AND folder = ? AND name = ?`,
		collectionID, folder, name).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return collections.File{}, kberrors.Storage("", "check existing file record", err)
	}

	if err == sql.ErrNoRows {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO files (id, collection_id, folder, name, content_hash, source_url, size, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, collectionID, folder, name, hash, sourceURL, size,
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE files SET content_hash = ?, source_url = ?, size = ?, updated_at = ?
			WHERE collection_id = ? AND folder = ? AND name = ?`,
			hash, sourceURL, size, now.Format(time.RFC3339Nano), collectionID, folder, name)
	}
	if err != nil {
		return collections.File{}, kberrors.Storage("", "save file record", err)
	}

	return collections.File{
		ID: id, CollectionID: collectionID, Folder: folder, Name: name,
		Content: content, ContentHash: hash, SourceURL: sourceURL, Size: size,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (s *Store) ReadFile(ctx context.Context, collectionID, folder, name string) (collections.File, error) {
	folder = collections.CleanFolder(folder)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, folder, name, content_hash, source_url, size, created_at, updated_at
		FROM files WHERE collection_id = ? AND folder = ? AND name = ?`,
		collectionID, folder, name)

	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return collections.File{}, kberrors.NotFound(kberrors.CodeFileNotFound, "file not found: "+filepath.Join(folder, name))
	}
	if err != nil {
		return collections.File{}, kberrors.Storage("", "read file record", err)
	}

	content, err := os.ReadFile(s.contentPath(collectionID, folder, name))
	if err != nil {
		return collections.File{}, kberrors.Storage("", "read file content", err)
	}
	f.Content = string(content)
	return f, nil
}

func (s *Store) UpdateFile(ctx context.Context, collectionID, folder, name string, update store.FileUpdate) (collections.File, error) {
	existing, err := s.ReadFile(ctx, collectionID, folder, name)
	if err != nil {
		return collections.File{}, err
	}
	content := existing.Content
	if update.Content != nil {
		content = *update.Content
	}
	sourceURL := existing.SourceURL
	if update.SourceURL != nil {
		sourceURL = *update.SourceURL
	}
	return s.SaveFile(ctx, collectionID, folder, name, content, sourceURL)
}

func (s *Store) DeleteFile(ctx context.Context, collectionID, folder, name string) error {
	folder = collections.CleanFolder(folder)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM files WHERE collection_id = ? AND folder = ? AND name = ?`,
		collectionID, folder, name)
	if err != nil {
		return kberrors.Storage("", "delete file record", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kberrors.NotFound(kberrors.CodeFileNotFound, "file not found: "+filepath.Join(folder, name))
	}
	if err := os.Remove(s.contentPath(collectionID, folder, name)); err != nil && !os.IsNotExist(err) {
		return kberrors.Storage("", "remove file content", err)
	}
	return nil
}

func (s *Store) ListFiles(ctx context.Context, collectionID string) ([]collections.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_id, folder, name, content_hash, source_url, size, created_at, updated_at
		FROM files WHERE collection_id = ? ORDER BY folder, name`, collectionID)
	if err != nil {
		return nil, kberrors.Storage("", "list files", err)
	}
	defer rows.Close()

	var out []collections.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, kberrors.Storage("", "scan file", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
