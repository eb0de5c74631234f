package model

// AnalysisStatus is the overall outcome of one document analysis request.
type AnalysisStatus string

const (
	// AnalysisSucceeded means the target field was extracted with acceptable confidence.
	AnalysisSucceeded AnalysisStatus = "succeeded"
	// AnalysisRequiresReview means the target field was extracted below the threshold.
	AnalysisRequiresReview AnalysisStatus = "requires_review"
	// AnalysisFailed means the analysis service failed or found nothing usable.
	AnalysisFailed AnalysisStatus = "failed"
)

// AnalysisOutcome is the flattened result of one analysis-service call.
// Created once per request and consumed exactly once by the evaluator.
type AnalysisOutcome struct {
	AnalysisID string   `json:"analysis_id"`
	ModelID    string   `json:"model_id"`
	APIVersion string   `json:"api_version"`
	PageCount  int      `json:"page_count"`
	Fields     FieldMap `json:"fields"`
	Content    string   `json:"content,omitempty"`
}

// EvaluationDecision is the derived verdict for a single field. It is never
// persisted on its own; the archival record captures its relevant parts.
type EvaluationDecision struct {
	Status           FieldStatus
	RequiresArchival bool
	Reason           string
	Confidence       float64
	// Value is the raw extracted value regardless of threshold. The response
	// layer decides whether to surface it.
	Value *string
}

// OverallStatus maps a field decision to the request-level analysis status.
func (d EvaluationDecision) OverallStatus() AnalysisStatus {
	switch d.Status {
	case FieldExtracted:
		return AnalysisSucceeded
	case FieldLowConfidence:
		return AnalysisRequiresReview
	default:
		return AnalysisFailed
	}
}
