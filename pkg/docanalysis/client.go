// Package docanalysis provides a client for the external document-analysis
// service that extracts fields with per-field confidence scores.
package docanalysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/veerayerva/warehouse-returns/internal/model"
	"github.com/veerayerva/warehouse-returns/internal/resilience"
)

// Client defines the document-analysis operations used by the pipeline.
type Client interface {
	// AnalyzeURL submits a document by URL for analysis.
	AnalyzeURL(ctx context.Context, documentURL string) (*model.AnalysisOutcome, error)
	// AnalyzeBytes submits raw document bytes for analysis.
	AnalyzeBytes(ctx context.Context, data []byte, contentType string) (*model.AnalysisOutcome, error)
	// Health checks service reachability.
	Health(ctx context.Context) error
}

// Config holds the connection settings for the analysis service.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	ModelID    string
	Timeout    time.Duration
}

// ClientOption configures the HTTP client.
type ClientOption func(*httpClient)

// WithRateLimit sets a per-second rate limit for analysis calls. A burst
// equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the default retry policy for transient service errors.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates an HTTP-backed analysis client.
func New(cfg Config, opts ...ClientOption) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &httpClient{
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// analyzeRequest is the wire request: exactly one of URLSource or
// Base64Source is set.
type analyzeRequest struct {
	URLSource    string `json:"urlSource,omitempty"`
	Base64Source string `json:"base64Source,omitempty"`
}

// Wire response shape of the analysis service.
type analyzeResponse struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
	Error         *serviceError  `json:"error"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzeResult struct {
	APIVersion string           `json:"apiVersion"`
	ModelID    string           `json:"modelId"`
	Content    string           `json:"content"`
	Documents  []wireDocument   `json:"documents"`
	Pages      []map[string]any `json:"pages"`
}

type wireDocument struct {
	DocType    string               `json:"docType"`
	Fields     map[string]wireField `json:"fields"`
	Confidence float64              `json:"confidence"`
}

type wireField struct {
	Type        string `json:"type"`
	ValueString string `json:"valueString"`
	Content     string `json:"content"`
	Confidence  float64 `json:"confidence"`
	BoundingRegions []struct {
		PageNumber int       `json:"pageNumber"`
		Polygon    []float64 `json:"polygon"`
	} `json:"boundingRegions"`
	Spans []struct {
		Offset int `json:"offset"`
		Length int `json:"length"`
	} `json:"spans"`
}

// AnalyzeURL submits a document by URL for analysis.
func (c *httpClient) AnalyzeURL(ctx context.Context, documentURL string) (*model.AnalysisOutcome, error) {
	return c.analyze(ctx, analyzeRequest{URLSource: documentURL})
}

// AnalyzeBytes submits raw document bytes for analysis.
func (c *httpClient) AnalyzeBytes(ctx context.Context, data []byte, contentType string) (*model.AnalysisOutcome, error) {
	_ = contentType // the service sniffs the format from the payload
	return c.analyze(ctx, analyzeRequest{Base64Source: base64.StdEncoding.EncodeToString(data)})
}

func (c *httpClient) analyze(ctx context.Context, reqBody analyzeRequest) (*model.AnalysisOutcome, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "docanalysis: rate limiter wait")
		}
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("docanalysis", "analyze")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.AnalysisOutcome, error) {
		return c.doAnalyze(ctx, reqBody)
	})
}

func (c *httpClient) doAnalyze(ctx context.Context, reqBody analyzeRequest) (*model.AnalysisOutcome, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "docanalysis: marshal request")
	}

	url := fmt.Sprintf("%s/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.ModelID, c.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "docanalysis: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "docanalysis: analyze call"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "docanalysis: read response"), 0)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("docanalysis: service returned %d: %s", resp.StatusCode, truncate(respBody, 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, resilience.NewPermanentError(err)
	}

	var wire analyzeResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, eris.Wrap(err, "docanalysis: unmarshal response")
	}

	if !strings.EqualFold(wire.Status, "succeeded") || wire.AnalyzeResult == nil {
		msg := "analysis did not succeed"
		if wire.Error != nil {
			msg = fmt.Sprintf("%s: %s", wire.Error.Code, wire.Error.Message)
		}
		return nil, resilience.NewPermanentError(eris.Errorf("docanalysis: %s (status %q)", msg, wire.Status))
	}

	return flatten(wire.AnalyzeResult), nil
}

// Health checks service reachability with a lightweight GET.
func (c *httpClient) Health(ctx context.Context) error {
	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/documentModels?api-version=" + c.cfg.APIVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "docanalysis: create health request")
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "docanalysis: health call")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 500 {
		return eris.Errorf("docanalysis: health returned %d", resp.StatusCode)
	}
	return nil
}

// flatten collapses the nested wire shape into the pipeline's outcome model.
// Only the primary document's fields are kept; the service returns one
// document per analyzed file.
func flatten(result *analyzeResult) *model.AnalysisOutcome {
	outcome := &model.AnalysisOutcome{
		ModelID:    result.ModelID,
		APIVersion: result.APIVersion,
		PageCount:  len(result.Pages),
		Fields:     model.FieldMap{},
		Content:    result.Content,
	}

	if len(result.Documents) == 0 {
		return outcome
	}

	for name, wf := range result.Documents[0].Fields {
		field := model.ExtractionField{
			Name:       name,
			Confidence: wf.Confidence,
		}
		// Prefer the typed value; fall back to raw content.
		if wf.ValueString != "" {
			v := wf.ValueString
			field.Value = &v
		} else if wf.Content != "" {
			v := wf.Content
			field.Value = &v
		}
		for _, br := range wf.BoundingRegions {
			field.Regions = append(field.Regions, model.BoundingRegion{
				PageNumber: br.PageNumber,
				Polygon:    br.Polygon,
			})
		}
		for _, sp := range wf.Spans {
			field.Spans = append(field.Spans, model.ContentSpan{Offset: sp.Offset, Length: sp.Length})
		}
		outcome.Fields[name] = field
	}

	return outcome
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
