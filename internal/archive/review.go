package archive

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veerayerva/warehouse-returns/internal/blobstore"
	"github.com/veerayerva/warehouse-returns/internal/model"
)

// PendingReview is one archived low-confidence document awaiting human review.
type PendingReview struct {
	AnalysisID   string           `json:"analysis_id"`
	DocumentPath string           `json:"document_path"`
	MetadataPath string           `json:"metadata_path"`
	FieldName    string           `json:"field_name"`
	Value        *string          `json:"value"`
	Confidence   model.Confidence `json:"confidence"`
	Threshold    model.Confidence `json:"threshold"`
	OriginalName string           `json:"original_name"`
	StoredAt     time.Time        `json:"stored_at"`
}

// Reviewer lists archived documents pending human review.
type Reviewer struct {
	store     blobstore.Store
	container string
}

// NewReviewer creates a Reviewer over the given store and container.
func NewReviewer(store blobstore.Store, container string) *Reviewer {
	return &Reviewer{store: store, container: container}
}

// ListPending returns records archived within the last `days` days, newest
// first. A metadata object that fails to decode is skipped with a warning;
// one corrupt record must not hide the rest of the queue.
func (r *Reviewer) ListPending(ctx context.Context, scope string, days int) ([]PendingReview, error) {
	if days <= 0 {
		days = 7
	}
	if scope == "" {
		scope = DefaultScope
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	prefix := addressPrefix + "/" + scope + "/"

	objects, err := r.store.List(ctx, r.container, prefix, since)
	if err != nil {
		return nil, eris.Wrap(err, "archive: list pending review")
	}

	pending := make([]PendingReview, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Path, metadataFileName) {
			continue
		}
		// Listings carry no payloads; fetch the record itself.
		blob, err := r.store.Download(ctx, r.container, obj.Path)
		if err != nil {
			zap.L().Warn("archive: skipping unreadable metadata object",
				zap.String("path", obj.Path),
				zap.Error(err),
			)
			continue
		}
		var record model.ArchivalRecord
		if err := json.Unmarshal(blob.Data, &record); err != nil {
			zap.L().Warn("archive: skipping undecodable metadata object",
				zap.String("path", obj.Path),
				zap.Error(err),
			)
			continue
		}
		pending = append(pending, PendingReview{
			AnalysisID:   record.AnalysisID,
			DocumentPath: record.Storage.DocumentPath,
			MetadataPath: record.Storage.MetadataPath,
			FieldName:    record.Extraction.FieldName,
			Value:        record.Extraction.Value,
			Confidence:   record.Extraction.Confidence,
			Threshold:    record.Extraction.Threshold,
			OriginalName: record.Document.OriginalName,
			StoredAt:     record.Storage.StoredAt,
		})
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].StoredAt.After(pending[j].StoredAt)
	})
	return pending, nil
}
