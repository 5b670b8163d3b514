package services

import (
	"context"

	"github.com/umstimetable/timetable-api/internal/models"
)

// TimetableServiceInterface defines the operations exposed over HTTP
type TimetableServiceInterface interface {
	GetSchedule(ctx context.Context) (models.Timetable, error)
	RefreshSchedule(ctx context.Context) (models.Timetable, error)
	GetStatus(ctx context.Context) models.TimetableStatus
}

// HistoryRecorder persists refresh attempts
type HistoryRecorder interface {
	Record(ctx context.Context, rec *models.RefreshRecord) error
}

// Ensure services implement their interfaces
var _ TimetableServiceInterface = (*TimetableService)(nil)
