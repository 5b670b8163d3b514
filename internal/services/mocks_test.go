package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/umstimetable/timetable-api/internal/models"
)

// MockFetcher is a mock implementation of cache.TimetableFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context) ([]models.ClassRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClassRecord), args.Error(1)
}

// MockHistoryRecorder is a mock implementation of HistoryRecorder
type MockHistoryRecorder struct {
	mock.Mock
}

func (m *MockHistoryRecorder) Record(ctx context.Context, rec *models.RefreshRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
