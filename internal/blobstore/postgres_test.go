package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veerayerva/warehouse-returns/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_EnsureContainer(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO blob_containers .+ ON CONFLICT \(name\) DO NOTHING`).
		WithArgs("document-analysis", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.EnsureContainer(context.Background(), "document-analysis"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureContainer_AlreadyExists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Zero rows affected on conflict is success.
	mock.ExpectExec(`INSERT INTO blob_containers`).
		WithArgs("document-analysis", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, s.EnsureContainer(context.Background(), "document-analysis"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureContainer_InvalidName(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	for _, name := range []string{"", "bad/name", `bad\name`, "bad name"} {
		err := s.EnsureContainer(context.Background(), name)
		require.Error(t, err, "name %q", name)
		assert.True(t, resilience.IsPermanent(err), "name %q", name)
	}
}

func TestPostgresStore_Upload(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	storedAt := time.Date(2026, 3, 7, 14, 30, 0, 0, time.UTC)
	obj := Object{
		Container:   "document-analysis",
		Path:        "low-confidence/pending-review/2026/03/07/analysis-1/document.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
		Metadata:    map[string]string{"analysis_id": "analysis-1"},
		StoredAt:    storedAt,
	}

	mock.ExpectExec(`INSERT INTO blobs .+ ON CONFLICT \(container, path\) DO UPDATE`).
		WithArgs(obj.Container, obj.Path, obj.ContentType, obj.Data, []byte(`{"analysis_id":"analysis-1"}`), storedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Upload(context.Background(), obj))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upload_ConnectionErrorIsTransient(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO blobs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})

	err := s.Upload(context.Background(), Object{Container: "c", Path: "p", Data: []byte("x")})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upload_AccessErrorIsPermanent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO blobs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied"})

	err := s.Upload(context.Background(), Object{Container: "c", Path: "p", Data: []byte("x")})
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
	assert.False(t, resilience.IsTransient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Download(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	storedAt := time.Date(2026, 3, 7, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT content_type, data, metadata, stored_at FROM blobs`).
		WithArgs("c", "p/metadata.json").
		WillReturnRows(pgxmock.NewRows([]string{"content_type", "data", "metadata", "stored_at"}).
			AddRow("application/json", []byte(`{"schema_version":1}`), []byte(`{"type":"metadata"}`), storedAt))

	obj, err := s.Download(context.Background(), "c", "p/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", obj.ContentType)
	assert.Equal(t, []byte(`{"schema_version":1}`), obj.Data)
	assert.Equal(t, "metadata", obj.Metadata["type"])
	assert.Equal(t, len(obj.Data), obj.SizeBytes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Download_NotFoundIsPermanent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT content_type, data, metadata, stored_at FROM blobs`).
		WithArgs("c", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Download(context.Background(), "c", "missing")
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 6, 8, 0, 0, 0, time.UTC)
	older := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT path, content_type, metadata, octet_length\(data\), stored_at`).
		WithArgs("c", "low-confidence/pending-review/", since).
		WillReturnRows(pgxmock.NewRows([]string{"path", "content_type", "metadata", "octet_length", "stored_at"}).
			AddRow("low-confidence/pending-review/a/metadata.json", "application/json", []byte(nil), 42, newer).
			AddRow("low-confidence/pending-review/b/metadata.json", "application/json", []byte(nil), 17, older))

	objects, err := s.List(context.Background(), "c", "low-confidence/pending-review/", since)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "low-confidence/pending-review/a/metadata.json", objects[0].Path)
	assert.Equal(t, 42, objects[0].SizeBytes)
	assert.Empty(t, objects[0].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_EscapesLikeWildcards(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT path, content_type, metadata`).
		WithArgs("c", `prefix\_with\%chars/`, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"path", "content_type", "metadata", "octet_length", "stored_at"}))

	_, err := s.List(context.Background(), "c", "prefix_with%chars/", time.Time{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectPing().WillReturnError(eris.New("pool closed"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
