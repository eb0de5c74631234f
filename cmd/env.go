package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/veerayerva/warehouse-returns/internal/archive"
	"github.com/veerayerva/warehouse-returns/internal/blobstore"
	"github.com/veerayerva/warehouse-returns/internal/pieceinfo"
	"github.com/veerayerva/warehouse-returns/internal/pipeline"
	"github.com/veerayerva/warehouse-returns/internal/resilience"
	"github.com/veerayerva/warehouse-returns/pkg/docanalysis"
)

// appEnv holds the initialized store, clients, and processor shared by the
// serve/analyze/review commands.
type appEnv struct {
	Store     blobstore.Store
	Processor *pipeline.Processor
	Reviewer  *archive.Reviewer
	PieceInfo *pieceinfo.Service
	Analysis  docanalysis.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the content store and API clients and builds the
// processor. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	analysisOpts := []docanalysis.ClientOption{}
	if cfg.Analysis.RateLimitPerSec > 0 {
		analysisOpts = append(analysisOpts, docanalysis.WithRateLimit(cfg.Analysis.RateLimitPerSec))
	}
	analysisClient := docanalysis.New(docanalysis.Config{
		Endpoint:   cfg.Analysis.Endpoint,
		APIKey:     cfg.Analysis.APIKey,
		APIVersion: cfg.Analysis.APIVersion,
		ModelID:    cfg.Analysis.ModelID,
		Timeout:    cfg.Analysis.AnalysisTimeout(),
	}, analysisOpts...)

	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.Archive.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Archive.BackoffSecs) * time.Second,
		MaxBackoff:     time.Duration(cfg.Archive.MaxBackoffSecs) * time.Second,
		Multiplier:     2.0,
	}
	writer := archive.NewWriter(st, retry)

	processor := pipeline.NewProcessor(pipeline.Config{
		FieldName: cfg.Analysis.FieldName,
		Threshold: cfg.Analysis.ConfidenceThreshold,
		Container: cfg.Archive.Container,
		Scope:     cfg.Archive.Scope,
	}, analysisClient, writer)

	var hub *pieceinfo.Service
	if cfg.PieceInfo.BaseURL != "" {
		hubClient := pieceinfo.NewClient(pieceinfo.ClientConfig{
			BaseURL:         cfg.PieceInfo.BaseURL,
			SubscriptionKey: cfg.PieceInfo.SubscriptionKey,
			Timeout:         time.Duration(cfg.PieceInfo.TimeoutSecs) * time.Second,
		})
		hub = pieceinfo.NewService(hubClient)
	}

	return &appEnv{
		Store:     st,
		Processor: processor,
		Reviewer:  archive.NewReviewer(st, cfg.Archive.Container),
		PieceInfo: hub,
		Analysis:  analysisClient,
	}, nil
}

func initStore(ctx context.Context) (blobstore.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "returns.db"
		}
		return blobstore.NewSQLite(dsn)
	case "postgres":
		return blobstore.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
