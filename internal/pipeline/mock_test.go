package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/veerayerva/warehouse-returns/internal/model"
)

// --- Analysis Client Mock ---

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) AnalyzeURL(ctx context.Context, documentURL string) (*model.AnalysisOutcome, error) {
	args := m.Called(ctx, documentURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisOutcome), args.Error(1)
}

func (m *mockAnalyzer) AnalyzeBytes(ctx context.Context, data []byte, contentType string) (*model.AnalysisOutcome, error) {
	args := m.Called(ctx, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisOutcome), args.Error(1)
}

func (m *mockAnalyzer) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Archiver Mock ---

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) Archive(ctx context.Context, address model.StorageAddress, doc model.Document, record model.ArchivalRecord) (model.StorageInformation, error) {
	args := m.Called(ctx, address, doc, record)
	return args.Get(0).(model.StorageInformation), args.Error(1)
}
