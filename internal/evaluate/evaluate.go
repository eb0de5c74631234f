// Package evaluate decides whether an extracted field is trustworthy enough
// to return directly or must be archived for human review.
package evaluate

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/veerayerva/warehouse-returns/internal/model"
)

// ErrInvalidThreshold is returned by ValidateThreshold for values outside [0, 1].
var ErrInvalidThreshold = eris.New("confidence threshold must be between 0.0 and 1.0")

// ValidateThreshold rejects thresholds outside [0.0, 1.0]. Callers validate
// once at configuration time; Evaluate assumes a valid threshold.
func ValidateThreshold(threshold float64) error {
	if threshold < 0.0 || threshold > 1.0 {
		return eris.Wrapf(ErrInvalidThreshold, "got %v", threshold)
	}
	return nil
}

// Evaluate is the pure confidence decision. A nil or empty field is
// NotFound. A confidence outside [0, 1] is a malformed collaborator response:
// the score is clamped and the field flagged as an extraction error rather
// than silently accepted or dropped. At the exact boundary
// confidence == threshold the field is accepted.
//
// Archival applies only to a low-confidence attempt, never to a total miss:
// there is nothing visually re-reviewable for a null extraction.
func Evaluate(field *model.ExtractionField, threshold float64) model.EvaluationDecision {
	if field == nil || !field.HasValue() {
		return model.EvaluationDecision{
			Status:           model.FieldNotFound,
			RequiresArchival: false,
			Reason:           "field not present in analysis result",
		}
	}

	if field.Confidence < 0.0 || field.Confidence > 1.0 {
		clamped := field.Confidence
		if clamped < 0.0 {
			clamped = 0.0
		} else if clamped > 1.0 {
			clamped = 1.0
		}
		return model.EvaluationDecision{
			Status:           model.FieldExtractionError,
			RequiresArchival: false,
			Reason:           "confidence out of range",
			Confidence:       clamped,
			Value:            field.Value,
		}
	}

	if field.Confidence >= threshold {
		return model.EvaluationDecision{
			Status:           model.FieldExtracted,
			RequiresArchival: false,
			Reason:           fmt.Sprintf("confidence %.4f meets threshold %.4f", field.Confidence, threshold),
			Confidence:       field.Confidence,
			Value:            field.Value,
		}
	}

	return model.EvaluationDecision{
		Status:           model.FieldLowConfidence,
		RequiresArchival: true,
		Reason:           fmt.Sprintf("confidence %.4f below threshold %.4f", field.Confidence, threshold),
		Confidence:       field.Confidence,
		Value:            field.Value,
	}
}
