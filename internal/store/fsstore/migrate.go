package fsstore

import "database/sql"

// migrateSidecar creates the sidecar schema. Unlike sqlstore, the sidecar
// is pure metadata cache rebuilt from the filesystem by Reconciler if it's
// ever lost, so there is no content column and no multi-version migration
// chain; one idempotent schema statement is enough.
func migrateSidecar(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS files (
			id            TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			folder        TEXT NOT NULL DEFAULT '',
			name          TEXT NOT NULL,
			content_hash  TEXT NOT NULL DEFAULT '',
			source_url    TEXT NOT NULL DEFAULT '',
			size          INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,
			UNIQUE (collection_id, folder, name)
		);

		CREATE INDEX IF NOT EXISTS idx_files_collection ON files(collection_id);

		CREATE TABLE IF NOT EXISTS sync_status (
			collection_id     TEXT PRIMARY KEY REFERENCES collections(id) ON DELETE CASCADE,
			state             TEXT NOT NULL,
			started_at        TEXT,
			finished_at       TEXT,
			files_total       INTEGER NOT NULL DEFAULT 0,
			files_processed   INTEGER NOT NULL DEFAULT 0,
			chunks_added      INTEGER NOT NULL DEFAULT 0,
			chunks_removed    INTEGER NOT NULL DEFAULT 0,
			model_fingerprint TEXT NOT NULL DEFAULT '',
			last_error        TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS sync_file_snapshots (
			collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			file_id       TEXT NOT NULL,
			content_hash  TEXT NOT NULL,
			synced_at     TEXT NOT NULL,
			chunk_ids     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (collection_id, file_id)
		);

		CREATE TABLE IF NOT EXISTS pending_vector_deletions (
			collection_id TEXT PRIMARY KEY,
			recorded_at   TEXT NOT NULL
		);
	`)
	return err
}
