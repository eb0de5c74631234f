package model

// FieldStatus classifies the outcome of extracting a single field.
type FieldStatus string

const (
	// FieldExtracted means the field was found with acceptable confidence.
	FieldExtracted FieldStatus = "extracted"
	// FieldLowConfidence means the field was found but scored below the threshold.
	FieldLowConfidence FieldStatus = "low_confidence"
	// FieldNotFound means the analysis produced no value for the field.
	FieldNotFound FieldStatus = "not_found"
	// FieldExtractionError means the analysis failed or returned a malformed result.
	FieldExtractionError FieldStatus = "extraction_error"
)

// BoundingRegion locates a field on a document page by polygon coordinates.
// Opaque to the evaluation pipeline; carried through for review tooling.
type BoundingRegion struct {
	PageNumber int       `json:"page_number"`
	Polygon    []float64 `json:"polygon"`
}

// ContentSpan marks a character range within the extracted document text.
type ContentSpan struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// ExtractionField is one named field produced by the analysis service.
// Immutable once received.
type ExtractionField struct {
	Name       string           `json:"name"`
	Value      *string          `json:"value,omitempty"`
	Confidence float64          `json:"confidence"`
	Regions    []BoundingRegion `json:"bounding_regions,omitempty"`
	Spans      []ContentSpan    `json:"spans,omitempty"`
}

// HasValue reports whether the field carries a non-empty extracted value.
func (f ExtractionField) HasValue() bool {
	return f.Value != nil && *f.Value != ""
}

// FieldMap holds extracted fields keyed by field name.
type FieldMap map[string]ExtractionField

// Lookup returns the named field and whether it was present. Missing keys
// are reported through the second return value, never by panicking.
func (m FieldMap) Lookup(name string) (ExtractionField, bool) {
	f, ok := m[name]
	return f, ok
}
