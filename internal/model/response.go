package model

import "time"

// Document carries an uploaded document through the pipeline.
type Document struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// FieldResult is the per-field portion of the response. Value is withheld
// (null) unless confidence met the threshold; the raw value lives only in
// the archival record.
type FieldResult struct {
	FieldName  string      `json:"field_name"`
	Value      *string     `json:"value"`
	Confidence Confidence  `json:"confidence"`
	Status     FieldStatus `json:"status"`
}

// ErrorDetail describes a request-level failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AnalyzeResponse is the full outcome of one document analysis request.
type AnalyzeResponse struct {
	AnalysisID       string              `json:"analysis_id"`
	Status           AnalysisStatus      `json:"status"`
	Field            FieldResult         `json:"field"`
	StorageInfo      *StorageInformation `json:"storage_info,omitempty"`
	CorrelationID    string              `json:"correlation_id"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
	CreatedAt        time.Time           `json:"created_at"`
	CompletedAt      time.Time           `json:"completed_at"`
	Error            *ErrorDetail        `json:"error,omitempty"`
}
