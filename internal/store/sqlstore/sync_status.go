package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
)

var _ store.SyncStatusStore = (*Store)(nil)

const chunkIDDelimiter = "|"

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func joinChunkIDs(ids []string) string { return strings.Join(ids, chunkIDDelimiter) }

func splitChunkIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, chunkIDDelimiter)
}

func (s *Store) LoadSyncStatus(ctx context.Context, collectionID string) (store.SyncStatusRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT state, started_at, finished_at, files_total, files_processed,
		       chunks_added, chunks_removed, model_fingerprint, last_error
		FROM sync_status WHERE collection_id = ?`, collectionID)

	var (
		rec                   store.SyncStatusRecord
		startedAt, finishedAt sql.NullString
	)
	err := row.Scan(&rec.State, &startedAt, &finishedAt, &rec.FilesTotal, &rec.FilesProcessed,
		&rec.ChunksAdded, &rec.ChunksRemoved, &rec.ModelFingerprint, &rec.LastError)
	if err == sql.ErrNoRows {
		return store.SyncStatusRecord{}, false, nil
	}
	if err != nil {
		return store.SyncStatusRecord{}, false, kberrors.Storage("", "load sync status", err)
	}
	rec.StartedAt = parseNullTime(startedAt)
	rec.FinishedAt = parseNullTime(finishedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, content_hash, synced_at, chunk_ids FROM sync_file_snapshots WHERE collection_id = ?`, collectionID)
	if err != nil {
		return store.SyncStatusRecord{}, false, kberrors.Storage("", "load sync snapshots", err)
	}
	defer rows.Close()

	rec.Snapshots = map[string]store.FileSnapshot{}
	for rows.Next() {
		var snap store.FileSnapshot
		var syncedAt, chunkIDs string
		if err := rows.Scan(&snap.FileID, &snap.ContentHash, &syncedAt, &chunkIDs); err != nil {
			return store.SyncStatusRecord{}, false, kberrors.Storage("", "scan sync snapshot", err)
		}
		snap.SyncedAt, _ = time.Parse(time.RFC3339Nano, syncedAt)
		snap.ChunkIDs = splitChunkIDs(chunkIDs)
		rec.Snapshots[snap.FileID] = snap
	}
	return rec, true, rows.Err()
}

func (s *Store) SaveSyncStatus(ctx context.Context, collectionID string, rec store.SyncStatusRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kberrors.Storage("", "begin save sync status", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_status (collection_id, state, started_at, finished_at, files_total,
			files_processed, chunks_added, chunks_removed, model_fingerprint, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id) DO UPDATE SET
			state = excluded.state, started_at = excluded.started_at, finished_at = excluded.finished_at,
			files_total = excluded.files_total, files_processed = excluded.files_processed,
			chunks_added = excluded.chunks_added, chunks_removed = excluded.chunks_removed,
			model_fingerprint = excluded.model_fingerprint, last_error = excluded.last_error`,
		collectionID, rec.State, formatNullTime(rec.StartedAt), formatNullTime(rec.FinishedAt),
		rec.FilesTotal, rec.FilesProcessed, rec.ChunksAdded, rec.ChunksRemoved, rec.ModelFingerprint, rec.LastError)
	if err != nil {
		return kberrors.Storage("", "save sync status", err)
	}

	// Snapshots are replaced wholesale: rec.Snapshots is always the
	// coordinator's complete current view for this collection.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_file_snapshots WHERE collection_id = ?`, collectionID); err != nil {
		return kberrors.Storage("", "clear sync snapshots", err)
	}
	for _, snap := range rec.Snapshots {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sync_file_snapshots (collection_id, file_id, content_hash, synced_at, chunk_ids)
			VALUES (?, ?, ?, ?, ?)`,
			collectionID, snap.FileID, snap.ContentHash, snap.SyncedAt.UTC().Format(time.RFC3339Nano), joinChunkIDs(snap.ChunkIDs))
		if err != nil {
			return kberrors.Storage("", "save sync snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kberrors.Storage("", "commit save sync status", err)
	}
	return nil
}

func (s *Store) DeleteSyncStatus(ctx context.Context, collectionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_status WHERE collection_id = ?`, collectionID); err != nil {
		return kberrors.Storage("", "delete sync status", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_file_snapshots WHERE collection_id = ?`, collectionID); err != nil {
		return kberrors.Storage("", "delete sync snapshots", err)
	}
	return nil
}

func (s *Store) ListSyncStatuses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection_id FROM sync_status ORDER BY collection_id`)
	if err != nil {
		return nil, kberrors.Storage("", "list sync statuses", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, kberrors.Storage("", "scan sync status id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) RecordPendingVectorDeletion(ctx context.Context, collectionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_vector_deletions (collection_id, recorded_at)
		VALUES (?, ?)
		ON CONFLICT(collection_id) DO NOTHING`,
		collectionID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return kberrors.Storage("", "record pending vector deletion", err)
	}
	return nil
}

func (s *Store) ListPendingVectorDeletions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection_id FROM pending_vector_deletions ORDER BY recorded_at`)
	if err != nil {
		return nil, kberrors.Storage("", "list pending vector deletions", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, kberrors.Storage("", "scan pending vector deletion", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ClearPendingVectorDeletion(ctx context.Context, collectionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_vector_deletions WHERE collection_id = ?`, collectionID); err != nil {
		return kberrors.Storage("", "clear pending vector deletion", err)
	}
	return nil
}
