package archive

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/veerayerva/warehouse-returns/internal/model"
)

// BuildRecord assembles the versioned metadata record persisted next to an
// archived document. Pure transformation: no clock reads, no storage. The
// caller supplies storedAt so that the record and the blob timestamps agree.
//
// The raw extracted value is kept in the record even though the API response
// withholds sub-threshold values; reviewers need to see what the model read.
func BuildRecord(
	outcome *model.AnalysisOutcome,
	fieldName string,
	decision model.EvaluationDecision,
	address model.StorageAddress,
	doc model.Document,
	threshold float64,
	correlationID string,
	tags map[string]string,
	storedAt time.Time,
) model.ArchivalRecord {
	return model.ArchivalRecord{
		SchemaVersion: model.ArchivalSchemaVersion,
		AnalysisID:    outcome.AnalysisID,
		CorrelationID: correlationID,
		ModelID:       outcome.ModelID,
		APIVersion:    outcome.APIVersion,
		Document: model.DocumentDescriptor{
			OriginalName: doc.Name,
			ContentType:  doc.ContentType,
			SizeBytes:    len(doc.Data),
		},
		Extraction: model.ExtractionSummary{
			FieldName:  fieldName,
			Value:      decision.Value,
			Confidence: model.Confidence(decision.Confidence),
			Status:     decision.Status,
			Threshold:  model.Confidence(threshold),
		},
		Storage: model.StorageDescriptor{
			ContainerName: address.ContainerName,
			DocumentPath:  address.DocumentPath,
			MetadataPath:  address.MetadataPath,
			Reason:        decision.Reason,
			StoredAt:      storedAt.UTC(),
		},
		Tags: tags,
	}
}

// EncodeRecord renders the record as deterministic JSON: two-space indent,
// stable key order from the struct layout, confidences at fixed precision.
// Identical input yields identical bytes, which is what makes the
// overwrite-on-retry discipline safe.
func EncodeRecord(record model.ArchivalRecord) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "archive: encode metadata record")
	}
	return data, nil
}
