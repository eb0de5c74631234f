package blobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/veerayerva/warehouse-returns/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development and tests; the schema mirrors the postgres backend.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS blob_containers (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS blobs (
	container    TEXT NOT NULL REFERENCES blob_containers(name),
	path         TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	data         BLOB NOT NULL,
	metadata     TEXT,
	stored_at    DATETIME NOT NULL,
	PRIMARY KEY (container, path)
);

CREATE INDEX IF NOT EXISTS idx_blobs_stored_at ON blobs(container, stored_at);
`

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and runs the schema migration.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "blobstore: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "blobstore: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "blobstore: migrate sqlite")
	}
	return &SQLiteStore{db: db}, nil
}

// EnsureContainer creates the container row if absent; an existing row is success.
func (s *SQLiteStore) EnsureContainer(ctx context.Context, container string) error {
	if err := validContainerName(container); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO blob_containers (name, created_at) VALUES (?, ?)`,
		container, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "blobstore: ensure container %s", container)
	}
	return nil
}

// Upload writes the object, replacing any existing blob at the same path.
func (s *SQLiteStore) Upload(ctx context.Context, obj Object) error {
	var meta []byte
	if len(obj.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(obj.Metadata)
		if err != nil {
			return resilience.NewPermanentError(eris.Wrap(err, "blobstore: marshal metadata"))
		}
	}

	storedAt := obj.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO blobs (container, path, content_type, data, metadata, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		obj.Container, obj.Path, obj.ContentType, obj.Data, meta, storedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "blobstore: upload %s/%s", obj.Container, obj.Path)
	}
	return nil
}

// Download fetches one object with its payload.
func (s *SQLiteStore) Download(ctx context.Context, container, path string) (*Object, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content_type, data, metadata, stored_at FROM blobs WHERE container = ? AND path = ?`,
		container, path,
	)

	obj := Object{Container: container, Path: path}
	var meta []byte
	if err := row.Scan(&obj.ContentType, &obj.Data, &meta, &obj.StoredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, resilience.NewPermanentError(eris.Errorf("blobstore: %s/%s not found", container, path))
		}
		return nil, eris.Wrapf(err, "blobstore: download %s/%s", container, path)
	}
	obj.SizeBytes = len(obj.Data)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &obj.Metadata); err != nil {
			return nil, eris.Wrapf(err, "blobstore: decode metadata for %s/%s", container, path)
		}
	}
	return &obj, nil
}

// List returns objects under the prefix without payloads, newest first.
func (s *SQLiteStore) List(ctx context.Context, container, prefix string, since time.Time) ([]Object, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, content_type, metadata, length(data), stored_at
		 FROM blobs
		 WHERE container = ? AND path LIKE ? || '%' ESCAPE '\' AND stored_at >= ?
		 ORDER BY stored_at DESC`,
		container, escapeLikePrefix(prefix), since,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "blobstore: list %s/%s", container, prefix)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		obj := Object{Container: container}
		var meta []byte
		if err := rows.Scan(&obj.Path, &obj.ContentType, &meta, &obj.SizeBytes, &obj.StoredAt); err != nil {
			return nil, eris.Wrap(err, "blobstore: scan list row")
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &obj.Metadata); err != nil {
				return nil, eris.Wrapf(err, "blobstore: decode metadata for %s", obj.Path)
			}
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "blobstore: iterate list rows")
	}
	return objects, nil
}

// Ping checks the connection for health reporting.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "blobstore: ping"), 0)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLikePrefix(prefix string) string {
	r := strings.NewReplacer("%", `\%`, "_", `\_`)
	return r.Replace(prefix)
}
