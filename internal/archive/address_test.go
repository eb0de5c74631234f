package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAddress(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 14, 30, 0, 0, time.UTC)

	addr, err := GenerateAddress("document-analysis", "analysis-abc", "pending-review", ".pdf", now)
	require.NoError(t, err)

	assert.Equal(t, "document-analysis", addr.ContainerName)
	assert.Equal(t, "low-confidence/pending-review/2026/03/07/analysis-abc/document.pdf", addr.DocumentPath)
	assert.Equal(t, "low-confidence/pending-review/2026/03/07/analysis-abc/metadata.json", addr.MetadataPath)
}

func TestGenerateAddress_Deterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	later := time.Date(2026, 3, 7, 23, 59, 59, 0, time.UTC)

	a, err := GenerateAddress("c", "analysis-1", "pending-review", ".png", now)
	require.NoError(t, err)
	b, err := GenerateAddress("c", "analysis-1", "pending-review", ".png", later)
	require.NoError(t, err)

	// Same analysis on the same UTC day maps to the same address.
	assert.Equal(t, a, b)
}

func TestGenerateAddress_UTCPartitioning(t *testing.T) {
	t.Parallel()

	// 23:30 on March 7 in UTC-5 is March 8 in UTC.
	est := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 3, 7, 23, 30, 0, 0, est)

	addr, err := GenerateAddress("c", "analysis-1", "pending-review", ".pdf", local)
	require.NoError(t, err)
	assert.Contains(t, addr.DocumentPath, "/2026/03/08/")
}

func TestGenerateAddress_DefaultScope(t *testing.T) {
	t.Parallel()

	addr, err := GenerateAddress("c", "analysis-1", "", ".pdf", time.Now())
	require.NoError(t, err)
	assert.Contains(t, addr.DocumentPath, "low-confidence/pending-review/")
}

func TestGenerateAddress_RejectsHostileIdentifiers(t *testing.T) {
	t.Parallel()

	now := time.Now()
	for _, id := range []string{
		"",
		"a/b",
		`a\b`,
		"../escape",
		"analysis-..-x",
	} {
		_, err := GenerateAddress("c", id, "pending-review", ".pdf", now)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "id %q", id)
	}
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".pdf", ExtensionFor("application/pdf"))
	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, ".tiff", ExtensionFor("image/tiff"))
	assert.Equal(t, ".pdf", ExtensionFor(" Application/PDF "))
	assert.Equal(t, ".bin", ExtensionFor("application/octet-stream"))
	assert.Equal(t, ".bin", ExtensionFor(""))
}
