// Package archive implements the low-confidence archival pipeline: address
// generation, metadata assembly, and the durable write to the content store.
package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/veerayerva/warehouse-returns/internal/model"
)

// ErrInvalidIdentifier is returned when an analysis id cannot be used as a
// path segment.
var ErrInvalidIdentifier = eris.New("invalid analysis identifier")

// DefaultScope is the review queue new archivals land in.
const DefaultScope = "pending-review"

const (
	addressPrefix    = "low-confidence"
	metadataFileName = "metadata.json"
)

// contentTypeExtensions maps the supported document MIME types to file
// extensions for the archived document blob.
var contentTypeExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/tiff":      ".tiff",
}

// ExtensionFor returns the archive file extension for a MIME type,
// falling back to .bin for anything unrecognized.
func ExtensionFor(contentType string) string {
	if ext, ok := contentTypeExtensions[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return ext
	}
	return ".bin"
}

// GenerateAddress derives the deterministic storage address for one archived
// analysis. The layout is
//
//	low-confidence/<scope>/<yyyy>/<mm>/<dd>/<analysisID>/document<ext>
//	low-confidence/<scope>/<yyyy>/<mm>/<dd>/<analysisID>/metadata.json
//
// partitioned by the UTC date of now, so a retried call on the same day
// yields byte-identical paths and overwrites instead of duplicating.
//
// The analysis id must be usable as a single path segment: ids containing
// separators or dot-dot sequences are rejected rather than escaped, so a
// hostile id can never address anything outside the archival prefix.
func GenerateAddress(container, analysisID, scope, ext string, now time.Time) (model.StorageAddress, error) {
	if analysisID == "" {
		return model.StorageAddress{}, eris.Wrap(ErrInvalidIdentifier, "empty analysis id")
	}
	if strings.ContainsAny(analysisID, "/\\") || strings.Contains(analysisID, "..") {
		return model.StorageAddress{}, eris.Wrapf(ErrInvalidIdentifier, "analysis id %q contains path separators", analysisID)
	}
	if scope == "" {
		scope = DefaultScope
	}

	utc := now.UTC()
	base := fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s",
		addressPrefix, scope, utc.Year(), utc.Month(), utc.Day(), analysisID)

	return model.StorageAddress{
		ContainerName: container,
		DocumentPath:  base + "/document" + ext,
		MetadataPath:  base + "/" + metadataFileName,
	}, nil
}
