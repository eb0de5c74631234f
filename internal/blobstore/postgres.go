package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/veerayerva/warehouse-returns/internal/resilience"
)

// Pool is the subset of pgxpool.Pool used by the store; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on PostgreSQL with bytea payloads.
type PostgresStore struct {
	pool Pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS blob_containers (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS blobs (
	container    TEXT NOT NULL REFERENCES blob_containers(name),
	path         TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	data         BYTEA NOT NULL,
	metadata     JSONB,
	stored_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (container, path)
);

CREATE INDEX IF NOT EXISTS idx_blobs_stored_at ON blobs(container, stored_at);
`

// NewPostgres creates a PostgresStore with a connection pool and runs the
// schema migration.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "blobstore: parse postgres config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "blobstore: create postgres pool")
	}

	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "blobstore: migrate")
	}

	return s, nil
}

// EnsureContainer creates the container row if absent. A concurrent create
// of the same name lands on ON CONFLICT DO NOTHING and is success.
func (s *PostgresStore) EnsureContainer(ctx context.Context, container string) error {
	if err := validContainerName(container); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blob_containers (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		container, time.Now().UTC(),
	)
	if err != nil {
		return classifyPgError(eris.Wrapf(err, "blobstore: ensure container %s", container))
	}
	return nil
}

// Upload writes the object, overwriting any existing blob at the same path.
func (s *PostgresStore) Upload(ctx context.Context, obj Object) error {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO blobs (container, path, content_type, data, metadata, stored_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (container, path) DO UPDATE
		 SET content_type = EXCLUDED.content_type,
		     data = EXCLUDED.data,
		     metadata = EXCLUDED.metadata,
		     stored_at = EXCLUDED.stored_at`,
		obj.Container, obj.Path, obj.ContentType, obj.Data, meta, storedAt,
	)
	if err != nil {
		return classifyPgError(eris.Wrapf(err, "blobstore: upload %s/%s", obj.Container, obj.Path))
	}
	return nil
}

// Download fetches one object with its payload.
func (s *PostgresStore) Download(ctx context.Context, container, path string) (*Object, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT content_type, data, metadata, stored_at FROM blobs WHERE container = $1 AND path = $2`,
		container, path,
	)

	obj := Object{Container: container, Path: path}
	var meta []byte
	if err := row.Scan(&obj.ContentType, &obj.Data, &meta, &obj.StoredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, resilience.NewPermanentError(eris.Errorf("blobstore: %s/%s not found", container, path))
		}
		return nil, classifyPgError(eris.Wrapf(err, "blobstore: download %s/%s", container, path))
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
func (s *PostgresStore) List(ctx context.Context, container, prefix string, since time.Time) ([]Object, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT path, content_type, metadata, octet_length(data), stored_at
		 FROM blobs
		 WHERE container = $1 AND path LIKE $2 || '%' AND stored_at >= $3
		 ORDER BY stored_at DESC`,
		container, escapeLikePrefix(prefix), since,
	)
	if err != nil {
		return nil, classifyPgError(eris.Wrapf(err, "blobstore: list %s/%s", container, prefix))
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
		return nil, classifyPgError(eris.Wrap(err, "blobstore: iterate list rows"))
	}
	return objects, nil
}

// Ping checks connectivity for health reporting.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "blobstore: ping"), 0)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// classifyPgError maps SQLSTATE classes onto the retry taxonomy: connection
// and resource classes are transient, auth/syntax/data classes permanent.
// Anything else is left to the generic network heuristics.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case strings.HasPrefix(pgErr.Code, "08"), // connection_exception
		strings.HasPrefix(pgErr.Code, "40"), // transaction_rollback
		strings.HasPrefix(pgErr.Code, "53"), // insufficient_resources
		strings.HasPrefix(pgErr.Code, "57"): // operator_intervention
		return resilience.NewTransientError(err, 0)
	case strings.HasPrefix(pgErr.Code, "22"), // data_exception
		strings.HasPrefix(pgErr.Code, "28"), // invalid_authorization
		strings.HasPrefix(pgErr.Code, "42"): // syntax_error_or_access_rule
		return resilience.NewPermanentError(err)
	default:
		return err
	}
}

func validContainerName(container string) error {
	if container == "" {
		return resilience.NewPermanentError(eris.New("blobstore: container name is empty"))
	}
	if strings.ContainsAny(container, "/\\ ") {
		return resilience.NewPermanentError(eris.Errorf("blobstore: invalid container name %q", container))
	}
	return nil
}
