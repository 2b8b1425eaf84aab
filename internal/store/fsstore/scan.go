package fsstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollectionAggregate(row rowScanner) (collections.Collection, error) {
	var (
		c                    collections.Collection
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &createdAt, &updatedAt, &c.FileCount, &c.TotalSize); err != nil {
		return collections.Collection{}, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return c, nil
}

// scanFile reads the metadata row only; Content is left empty and is
// filled in separately from the on-disk file when needed.
func scanFile(row rowScanner) (collections.File, error) {
	var (
		f                    collections.File
		createdAt, updatedAt string
	)
	if err := row.Scan(&f.ID, &f.CollectionID, &f.Folder, &f.Name, &f.ContentHash, &f.SourceURL, &f.Size, &createdAt, &updatedAt); err != nil {
		return collections.File{}, err
	}
	f.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	f.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return f, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func fileID(collectionID, folder, name string) string {
	sum := sha256.Sum256([]byte(collectionID + "\x1f" + folder + "\x1f" + name))
	return "file_" + hex.EncodeToString(sum[:])[:24]
}
