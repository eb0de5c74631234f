// Package pipeline orchestrates a document analysis request end to end:
// submit to the analysis service, evaluate the target field's confidence,
// and archive low-confidence documents for human review.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veerayerva/warehouse-returns/internal/archive"
	"github.com/veerayerva/warehouse-returns/internal/evaluate"
	"github.com/veerayerva/warehouse-returns/internal/model"
	"github.com/veerayerva/warehouse-returns/internal/resilience"
	"github.com/veerayerva/warehouse-returns/pkg/docanalysis"
)

// Sentinel errors for the serving layer to map onto HTTP statuses.
var (
	// ErrInvalidRequest marks client mistakes: missing URL, empty payload.
	ErrInvalidRequest = eris.New("invalid analyze request")
	// ErrAnalysisService marks an upstream analysis failure. Analysis is the
	// primary deliverable, so this one is fatal for the request.
	ErrAnalysisService = eris.New("analysis service error")
)

// Archiver is the durable-write half of the pipeline. Implemented by
// archive.Writer; mocked in tests.
type Archiver interface {
	Archive(ctx context.Context, address model.StorageAddress, doc model.Document, record model.ArchivalRecord) (model.StorageInformation, error)
}

// Config holds the pipeline's decision parameters.
type Config struct {
	// FieldName is the extraction field the pipeline evaluates.
	FieldName string
	// Threshold is the minimum acceptable confidence, inclusive.
	Threshold float64
	// Container is the content-store container for archived documents.
	Container string
	// Scope partitions archived documents under the container prefix.
	Scope string
}

// Processor runs the analyze/evaluate/archive sequence. Stateless between
// requests apart from the shared circuit breaker.
type Processor struct {
	cfg      Config
	analyzer docanalysis.Client
	archiver Archiver
	breaker  *resilience.Breaker
	fetch    func(ctx context.Context, url string) ([]byte, string, error)
	clock    func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithFetcher overrides the URL downloader used when an archived document
// was submitted by reference.
func WithFetcher(fetch func(ctx context.Context, url string) ([]byte, string, error)) ProcessorOption {
	return func(p *Processor) {
		p.fetch = fetch
	}
}

// WithProcessorClock overrides the clock, for deterministic tests.
func WithProcessorClock(clock func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.clock = clock
	}
}

// NewProcessor wires the analysis client and archiver into a processor.
func NewProcessor(cfg Config, analyzer docanalysis.Client, archiver Archiver, opts ...ProcessorOption) *Processor {
	if cfg.FieldName == "" {
		cfg.FieldName = "Serial"
	}
	if cfg.Scope == "" {
		cfg.Scope = archive.DefaultScope
	}
	p := &Processor{
		cfg:      cfg,
		analyzer: analyzer,
		archiver: archiver,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			OnStateChange: func(from, to resilience.BreakerState) {
				zap.L().Warn("analysis breaker state change",
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
		fetch: fetchURL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessURL analyzes a document submitted by URL. The document bytes are
// downloaded only if archival is required.
func (p *Processor) ProcessURL(ctx context.Context, documentURL, correlationID string) (*model.AnalyzeResponse, error) {
	if strings.TrimSpace(documentURL) == "" {
		return nil, eris.Wrap(ErrInvalidRequest, "document URL is required")
	}

	return p.process(ctx, correlationID,
		func(ctx context.Context) (*model.AnalysisOutcome, error) {
			return p.analyzer.AnalyzeURL(ctx, documentURL)
		},
		func(ctx context.Context) (model.Document, error) {
			data, contentType, err := p.fetch(ctx, documentURL)
			if err != nil {
				return model.Document{}, err
			}
			return model.Document{
				Name:        nameFromURL(documentURL),
				ContentType: contentType,
				Data:        data,
			}, nil
		},
	)
}

// ProcessBytes analyzes an uploaded document.
func (p *Processor) ProcessBytes(ctx context.Context, doc model.Document, correlationID string) (*model.AnalyzeResponse, error) {
	if len(doc.Data) == 0 {
		return nil, eris.Wrap(ErrInvalidRequest, "document payload is empty")
	}

	return p.process(ctx, correlationID,
		func(ctx context.Context) (*model.AnalysisOutcome, error) {
			return p.analyzer.AnalyzeBytes(ctx, doc.Data, doc.ContentType)
		},
		func(ctx context.Context) (model.Document, error) {
			return doc, nil
		},
	)
}

// process is the shared orchestration: analyze, evaluate, maybe archive.
// Archival failure never fails the request; the response carries a degraded
// storage descriptor instead.
func (p *Processor) process(
	ctx context.Context,
	correlationID string,
	analyze func(ctx context.Context) (*model.AnalysisOutcome, error),
	loadDocument func(ctx context.Context) (model.Document, error),
) (*model.AnalyzeResponse, error) {
	start := p.clock()
	analysisID := "analysis-" + uuid.NewString()
	if correlationID == "" {
		correlationID = "corr-" + uuid.NewString()
	}

	log := zap.L().With(
		zap.String("analysis_id", analysisID),
		zap.String("correlation_id", correlationID),
	)

	outcome, err := resilience.ExecuteVal(ctx, p.breaker, analyze)
	if err != nil {
		log.Error("analysis call failed", zap.Error(err))
		return p.failedResponse(analysisID, correlationID, start, err),
			eris.Wrap(ErrAnalysisService, eris.Cause(err).Error())
	}
	outcome.AnalysisID = analysisID

	field, found := outcome.Fields.Lookup(p.cfg.FieldName)
	var fieldRef *model.ExtractionField
	if found {
		fieldRef = &field
	}
	decision := evaluate.Evaluate(fieldRef, p.cfg.Threshold)

	log.Info("field evaluated",
		zap.String("field", p.cfg.FieldName),
		zap.String("status", string(decision.Status)),
		zap.Float64("confidence", decision.Confidence),
	)

	resp := &model.AnalyzeResponse{
		AnalysisID: analysisID,
		Status:     decision.OverallStatus(),
		Field: model.FieldResult{
			FieldName:  p.cfg.FieldName,
			Confidence: model.Confidence(decision.Confidence),
			Status:     decision.Status,
		},
		CorrelationID: correlationID,
		CreatedAt:     start.UTC(),
	}
	// The raw value is surfaced only when confidence met the threshold.
	if decision.Status == model.FieldExtracted {
		resp.Field.Value = decision.Value
	}

	if decision.RequiresArchival {
		resp.StorageInfo = p.archiveForReview(ctx, log, outcome, decision, correlationID, loadDocument)
	}

	completed := p.clock()
	resp.CompletedAt = completed.UTC()
	resp.ProcessingTimeMs = completed.Sub(start).Milliseconds()
	return resp, nil
}

// archiveForReview loads the document bytes, derives the storage address,
// and hands off to the archiver. Every failure path yields a non-nil
// degraded descriptor rather than an error.
func (p *Processor) archiveForReview(
	ctx context.Context,
	log *zap.Logger,
	outcome *model.AnalysisOutcome,
	decision model.EvaluationDecision,
	correlationID string,
	loadDocument func(ctx context.Context) (model.Document, error),
) *model.StorageInformation {
	doc, err := loadDocument(ctx)
	if err != nil {
		log.Error("document fetch for archival failed", zap.Error(err))
		return &model.StorageInformation{
			Stored: false,
			Reason: "storage_error: " + err.Error(),
		}
	}

	now := p.clock()
	address, err := archive.GenerateAddress(
		p.cfg.Container,
		outcome.AnalysisID,
		p.cfg.Scope,
		archive.ExtensionFor(doc.ContentType),
		now,
	)
	if err != nil {
		log.Error("address generation failed", zap.Error(err))
		return &model.StorageInformation{
			Stored: false,
			Reason: "storage_error: " + err.Error(),
		}
	}

	record := archive.BuildRecord(
		outcome, p.cfg.FieldName, decision, address, doc,
		p.cfg.Threshold, correlationID, nil, now,
	)

	info, err := p.archiver.Archive(ctx, address, doc, record)
	if err != nil {
		// Cancellation mid-archive. The analysis already succeeded, so the
		// response still goes out with a degraded descriptor.
		log.Warn("archival cancelled", zap.Error(err))
	}
	return &info
}

func (p *Processor) failedResponse(analysisID, correlationID string, start time.Time, cause error) *model.AnalyzeResponse {
	completed := p.clock()
	return &model.AnalyzeResponse{
		AnalysisID: analysisID,
		Status:     model.AnalysisFailed,
		Field: model.FieldResult{
			FieldName: p.cfg.FieldName,
			Status:    model.FieldExtractionError,
		},
		CorrelationID:    correlationID,
		ProcessingTimeMs: completed.Sub(start).Milliseconds(),
		CreatedAt:        start.UTC(),
		CompletedAt:      completed.UTC(),
		Error: &model.ErrorDetail{
			Code:    "analysis_failed",
			Message: "document analysis service call failed",
			Details: cause.Error(),
		},
	}
}

// BreakerState exposes the analysis breaker state for health reporting.
func (p *Processor) BreakerState() resilience.BreakerState {
	return p.breaker.State()
}

func fetchURL(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "pipeline: create download request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "pipeline: download document")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("pipeline: document download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", eris.Wrap(err, "pipeline: read document body")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

func nameFromURL(url string) string {
	trimmed := strings.SplitN(url, "?", 2)[0]
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
		return trimmed[idx+1:]
	}
	return fmt.Sprintf("document-%d", time.Now().Unix())
}
