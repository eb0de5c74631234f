package archive

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/veerayerva/warehouse-returns/internal/blobstore"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) EnsureContainer(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *mockStore) Upload(ctx context.Context, obj blobstore.Object) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockStore) Download(ctx context.Context, container, path string) (*blobstore.Object, error) {
	args := m.Called(ctx, container, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blobstore.Object), args.Error(1)
}

func (m *mockStore) List(ctx context.Context, container, prefix string, since time.Time) ([]blobstore.Object, error) {
	args := m.Called(ctx, container, prefix, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]blobstore.Object), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
