package archive

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veerayerva/warehouse-returns/internal/blobstore"
	"github.com/veerayerva/warehouse-returns/internal/model"
	"github.com/veerayerva/warehouse-returns/internal/resilience"
)

// ErrArchiveCancelled is returned when the caller's context is cancelled
// mid-archive. Distinct from an exhausted retry budget, which is not an
// error at all but a degraded StorageInformation.
var ErrArchiveCancelled = eris.New("archival cancelled")

// Writer performs the durable write of document bytes plus metadata JSON to
// the content store. Safe for concurrent use; all per-call state is local.
type Writer struct {
	store blobstore.Store
	retry resilience.RetryConfig
	clock func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock overrides the writer's clock, for deterministic tests.
func WithClock(clock func() time.Time) WriterOption {
	return func(w *Writer) {
		w.clock = clock
	}
}

// NewWriter creates a Writer over the given store with the given retry policy.
func NewWriter(store blobstore.Store, retry resilience.RetryConfig, opts ...WriterOption) *Writer {
	w := &Writer{
		store: store,
		retry: retry,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Archive writes the document and then its metadata record to the address.
// The sequence is EnsureContainer, UploadDocument, UploadMetadata, each with
// its own retry budget; the metadata upload never starts before the document
// upload has succeeded, so anyone listing metadata objects can assume the
// paired document exists.
//
// Storage failure is not propagated as an error: after retries are exhausted
// or a permanent rejection occurs, Archive returns a StorageInformation with
// Stored=false and a human-readable reason, because the extraction result is
// the primary deliverable and archival is best-effort durability. The only
// error return is cancellation of ctx.
func (w *Writer) Archive(ctx context.Context, address model.StorageAddress, doc model.Document, record model.ArchivalRecord) (model.StorageInformation, error) {
	log := zap.L().With(
		zap.String("analysis_id", record.AnalysisID),
		zap.String("correlation_id", record.CorrelationID),
		zap.String("container", address.ContainerName),
	)

	metadataJSON, err := EncodeRecord(record)
	if err != nil {
		log.Error("archive: metadata encoding failed", zap.Error(err))
		return notStored(err), nil
	}

	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"ensure_container", func(ctx context.Context) error {
			return w.store.EnsureContainer(ctx, address.ContainerName)
		}},
		{"upload_document", func(ctx context.Context) error {
			return w.store.Upload(ctx, blobstore.Object{
				Container:   address.ContainerName,
				Path:        address.DocumentPath,
				ContentType: doc.ContentType,
				Data:        doc.Data,
				Metadata: map[string]string{
					"analysis_id":    record.AnalysisID,
					"correlation_id": record.CorrelationID,
					"original_name":  doc.Name,
				},
				StoredAt: record.Storage.StoredAt,
			})
		}},
		{"upload_metadata", func(ctx context.Context) error {
			return w.store.Upload(ctx, blobstore.Object{
				Container:   address.ContainerName,
				Path:        address.MetadataPath,
				ContentType: "application/json",
				Data:        metadataJSON,
				Metadata: map[string]string{
					"analysis_id":    record.AnalysisID,
					"correlation_id": record.CorrelationID,
					"type":           "metadata",
				},
				StoredAt: record.Storage.StoredAt,
			})
		}},
	}

	for _, step := range steps {
		cfg := w.retry
		cfg.OnRetry = resilience.RetryLogger("blobstore", step.name)
		if err := resilience.Do(ctx, cfg, step.fn); err != nil {
			if errors.Is(err, resilience.ErrAborted) || ctx.Err() != nil {
				log.Warn("archive: cancelled", zap.String("step", step.name), zap.Error(err))
				return notStored(err), eris.Wrapf(ErrArchiveCancelled, "during %s", step.name)
			}
			log.Error("archive: step failed",
				zap.String("step", step.name),
				zap.Bool("permanent", resilience.IsPermanent(err)),
				zap.Error(err),
			)
			return notStored(err), nil
		}
	}

	log.Info("archive: document stored for review",
		zap.String("document_path", address.DocumentPath),
		zap.String("metadata_path", address.MetadataPath),
	)

	return model.StorageInformation{
		Stored:        true,
		ContainerName: address.ContainerName,
		DocumentPath:  address.DocumentPath,
		MetadataPath:  address.MetadataPath,
		Reason:        record.Storage.Reason,
		StoredAt:      record.Storage.StoredAt,
	}, nil
}

func notStored(cause error) model.StorageInformation {
	return model.StorageInformation{
		Stored: false,
		Reason: "storage_error: " + cause.Error(),
	}
}
