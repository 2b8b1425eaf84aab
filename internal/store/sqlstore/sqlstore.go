// Package sqlstore implements internal/store.CollectionStore on top of an
// embedded, pure-Go SQLite database (modernc.org/sqlite — no cgo), the
// "embedded_db" collection storage backend
package sqlstore

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

// Store is the embedded-database collection store. A single *sql.DB
// connection is used throughout (MaxOpenConns=1), matching the
// single-writer WAL pattern the pack uses for embedded SQLite: concurrent
// readers are safe under WAL, and serializing writers avoids
// "database is locked" errors without a separate application-level mutex.
type Store struct {
	db *sql.DB
}

var _ store.CollectionStore = (*Store)(nil)

// Open opens (creating if necessary) the sqlite database at path and
// applies pending migrations. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, kberrors.Storage("", "create database directory", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, kberrors.Storage("", "open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, kberrors.Storage("", "configure database", err)
		}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, kberrors.Storage("", "run migrations", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateCollection(ctx context.Context, name, description string) (collections.Collection, error) {
	if err := collections.ValidateName(name); err != nil {
		return collections.Collection{}, err
	}
	id := collections.Sanitize(name)
	ts := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id, name, description, created_at, updated_at, metadata) VALUES (?, ?, ?, ?, ?, '{}')`,
		id, name, description, ts.Format(time.RFC3339Nano), ts.Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return collections.Collection{}, kberrors.Conflict(kberrors.CodeDuplicateName, "a collection with this name already exists")
	}
	if err != nil {
		return collections.Collection{}, kberrors.Storage("", "create collection", err)
	}

	return collections.Collection{
		ID: id, Name: name, Description: description,
		CreatedAt: ts, UpdatedAt: ts,
	}, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]collections.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		       COUNT(f.id), COALESCE(SUM(f.size), 0)
		FROM collections c
		LEFT JOIN files f ON f.collection_id = c.id
		GROUP BY c.id
		ORDER BY c.name`)
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
		FROM collections c
		LEFT JOIN files f ON f.collection_id = c.id
		WHERE c.id = ?
		GROUP BY c.id`, id)

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
		return kberrors.Storage("", "delete collection", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kberrors.NotFound(kberrors.CodeCollectionNotFound, "collection not found: "+id)
	}
	return nil
}

func (s *Store) SaveFile(ctx context.Context, collectionID, folder, name, content, sourceURL string) (collections.File, error) {
	if err := collections.ValidatePath(folder, name); err != nil {
		return collections.File{}, err
	}
	folder = collections.CleanFolder(folder)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return collections.File{}, kberrors.Storage("", "begin save file", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := collectionExists(ctx, tx, collectionID); err != nil {
		return collections.File{}, err
	}

	now := time.Now().UTC()
	hash := contentHash(content)
	size := int64(len(content))

	var existingSize int64
	err = tx.QueryRowContext(ctx,
		`SELECT size FROM files WHERE collection_id = ? AND folder = ? AND name = ?`,
		collectionID, folder, name).Scan(&existingSize)
	isUpdate := err == nil
	if err != nil && err != sql.ErrNoRows {
		return collections.File{}, kberrors.Storage("", "check existing file", err)
	}

	id := fileID(collectionID, folder, name)
	createdAt := now
	if isUpdate {
		_, err = tx.ExecContext(ctx, `
			UPDATE files SET content = ?, content_hash = ?, source_url = ?, size = ?, updated_at = ?
			WHERE collection_id = ? AND folder = ? AND name = ?`,
			content, hash, sourceURL, size, now.Format(time.RFC3339Nano), collectionID, folder, name)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO files (id, collection_id, folder, name, content, content_hash, source_url, size, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, collectionID, folder, name, content, hash, sourceURL, size,
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	}
	if err != nil {
		return collections.File{}, kberrors.Storage("", "save file", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE collections SET updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano), collectionID); err != nil {
		return collections.File{}, kberrors.Storage("", "touch collection", err)
	}

	if err := tx.Commit(); err != nil {
		return collections.File{}, kberrors.Storage("", "commit save file", err)
	}

	return collections.File{
		ID: id, CollectionID: collectionID, Folder: folder, Name: name,
		Content: content, ContentHash: hash, SourceURL: sourceURL, Size: size,
		CreatedAt: createdAt, UpdatedAt: now,
	}, nil
}

func (s *Store) ReadFile(ctx context.Context, collectionID, folder, name string) (collections.File, error) {
	folder = collections.CleanFolder(folder)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, folder, name, content, content_hash, source_url, size, created_at, updated_at
		FROM files WHERE collection_id = ? AND folder = ? AND name = ?`,
		collectionID, folder, name)

	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return collections.File{}, kberrors.NotFound(kberrors.CodeFileNotFound, "file not found: "+filepath.Join(folder, name))
	}
	if err != nil {
		return collections.File{}, kberrors.Storage("", "read file", err)
	}
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
		return kberrors.Storage("", "delete file", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kberrors.NotFound(kberrors.CodeFileNotFound, "file not found: "+filepath.Join(folder, name))
	}
	_, _ = s.db.ExecContext(ctx, `UPDATE collections SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), collectionID)
	return nil
}

func (s *Store) ListFiles(ctx context.Context, collectionID string) ([]collections.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_id, folder, name, '', content_hash, source_url, size, created_at, updated_at
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
