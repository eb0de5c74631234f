package blobstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veerayerva/warehouse-returns/internal/resilience"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_UploadDownloadRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureContainer(ctx, "document-analysis"))

	obj := Object{
		Container:   "document-analysis",
		Path:        "low-confidence/pending-review/2026/03/07/analysis-1/document.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF fake bytes"),
		Metadata:    map[string]string{"analysis_id": "analysis-1", "correlation_id": "corr-1"},
		StoredAt:    time.Date(2026, 3, 7, 14, 30, 0, 0, time.UTC),
	}
	require.NoError(t, s.Upload(ctx, obj))

	got, err := s.Download(ctx, obj.Container, obj.Path)
	require.NoError(t, err)
	assert.Equal(t, obj.Data, got.Data)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, "analysis-1", got.Metadata["analysis_id"])
	assert.Equal(t, len(obj.Data), got.SizeBytes)
}

func TestSQLiteStore_UploadOverwrites(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureContainer(ctx, "c"))

	obj := Object{Container: "c", Path: "p", Data: []byte("first")}
	require.NoError(t, s.Upload(ctx, obj))

	obj.Data = []byte("second")
	require.NoError(t, s.Upload(ctx, obj))

	got, err := s.Download(ctx, "c", "p")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got.Data)
}

func TestSQLiteStore_EnsureContainerIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureContainer(ctx, "c"))
	require.NoError(t, s.EnsureContainer(ctx, "c"))
}

func TestSQLiteStore_DownloadMissingIsPermanent(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Download(context.Background(), "c", "missing")
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_ListFiltersByPrefixAndTime(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureContainer(ctx, "c"))

	old := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	newest := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	for _, o := range []Object{
		{Container: "c", Path: "low-confidence/pending-review/a/metadata.json", Data: []byte("a"), StoredAt: recent},
		{Container: "c", Path: "low-confidence/pending-review/b/metadata.json", Data: []byte("b"), StoredAt: newest},
		{Container: "c", Path: "low-confidence/pending-review/c/metadata.json", Data: []byte("c"), StoredAt: old},
		{Container: "c", Path: "other-prefix/d/metadata.json", Data: []byte("d"), StoredAt: newest},
	} {
		require.NoError(t, s.Upload(ctx, o))
	}

	objects, err := s.List(ctx, "c", "low-confidence/pending-review/", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, objects, 2)

	// Newest first, without payloads.
	assert.Equal(t, "low-confidence/pending-review/b/metadata.json", objects[0].Path)
	assert.Equal(t, "low-confidence/pending-review/a/metadata.json", objects[1].Path)
	assert.Nil(t, objects[0].Data)
	assert.Equal(t, 1, objects[0].SizeBytes)
}

func TestSQLiteStore_ListTreatsWildcardsLiterally(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureContainer(ctx, "c"))
	require.NoError(t, s.Upload(ctx, Object{Container: "c", Path: "a_b/doc", Data: []byte("x")}))
	require.NoError(t, s.Upload(ctx, Object{Container: "c", Path: "axb/doc", Data: []byte("y")}))

	objects, err := s.List(ctx, "c", "a_b/", time.Time{})
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "a_b/doc", objects[0].Path)
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
