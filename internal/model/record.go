package model

import (
	"strconv"
	"time"
)

// ArchivalSchemaVersion is the version stamped on every metadata record.
// Bump when the ArchivalRecord shape changes incompatibly.
const ArchivalSchemaVersion = 1

// Confidence serializes a confidence score with fixed 4-decimal precision so
// that a retried write of unchanged content is byte-identical.
type Confidence float64

// MarshalJSON renders the score as a bare number with exactly four decimals.
func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(c), 'f', 4, 64)), nil
}

// UnmarshalJSON parses a plain JSON number.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*c = Confidence(f)
	return nil
}

// StorageAddress is the deterministic pair of blob paths for one archived
// analysis. For a fixed (analysisID, scope, date) the address never changes,
// so re-processing overwrites instead of duplicating.
type StorageAddress struct {
	ContainerName string `json:"container_name"`
	DocumentPath  string `json:"document_path"`
	MetadataPath  string `json:"metadata_path"`
}

// DocumentDescriptor describes the archived document bytes.
type DocumentDescriptor struct {
	OriginalName string `json:"original_name,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	SizeBytes    int    `json:"size_bytes"`
}

// ExtractionSummary captures the evaluated field result inside the metadata
// record. Value stays a pointer: a missing extraction is null, never "".
type ExtractionSummary struct {
	FieldName  string      `json:"field_name"`
	Value      *string     `json:"value"`
	Confidence Confidence  `json:"confidence"`
	Status     FieldStatus `json:"status"`
	Threshold  Confidence  `json:"threshold"`
}

// StorageDescriptor records where and why the document was archived.
type StorageDescriptor struct {
	ContainerName string    `json:"container_name"`
	DocumentPath  string    `json:"document_path"`
	MetadataPath  string    `json:"metadata_path"`
	Reason        string    `json:"reason"`
	StoredAt      time.Time `json:"stored_at"`
}

// ArchivalRecord is the metadata document persisted next to an archived
// document. Written once; a retried attempt of the same analysis overwrites
// it with identical content.
type ArchivalRecord struct {
	SchemaVersion int                `json:"schema_version"`
	AnalysisID    string             `json:"analysis_id"`
	CorrelationID string             `json:"correlation_id,omitempty"`
	ModelID       string             `json:"model_id,omitempty"`
	APIVersion    string             `json:"api_version,omitempty"`
	Document      DocumentDescriptor `json:"document"`
	Extraction    ExtractionSummary  `json:"extraction"`
	Storage       StorageDescriptor  `json:"storage"`
	Tags          map[string]string  `json:"tags,omitempty"`
}

// StorageInformation is the archival subset surfaced back to the caller.
// Constructed once per request, never mutated after return.
type StorageInformation struct {
	Stored        bool      `json:"stored"`
	ContainerName string    `json:"container_name,omitempty"`
	DocumentPath  string    `json:"document_path,omitempty"`
	MetadataPath  string    `json:"metadata_path,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	StoredAt      time.Time `json:"stored_at,omitzero"`
}
