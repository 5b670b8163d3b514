package services

import (
	"context"
	"errors"

	"github.com/umstimetable/timetable-api/internal/cache"
	"github.com/umstimetable/timetable-api/internal/models"
	"github.com/umstimetable/timetable-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNoTimetable is returned by GetSchedule before the first successful refresh
var ErrNoTimetable = errors.New("no timetable data available")

// TimetableService serves the cached timetable and gated refreshes
type TimetableService struct {
	cache *cache.TimetableCache
}

// NewTimetableService creates a new timetable service instance
func NewTimetableService(tc *cache.TimetableCache) *TimetableService {
	return &TimetableService{cache: tc}
}

// GetSchedule returns the cached timetable without contacting the portal
func (s *TimetableService) GetSchedule(ctx context.Context) (models.Timetable, error) {
	entry, ok := s.cache.Get()
	if !ok {
		return models.Timetable{}, ErrNoTimetable
	}
	return entry, nil
}

// RefreshSchedule fetches a new timetable unless a refresh happened within the TTL
func (s *TimetableService) RefreshSchedule(ctx context.Context) (entry models.Timetable, err error) {
	ctx, span := tracing.StartSpan(ctx, "timetable.refresh")
	defer func() { tracing.EndSpan(span, err) }()

	entry, err = s.cache.Refresh(ctx)
	if err != nil {
		return models.Timetable{}, err
	}
	span.SetAttributes(attribute.Int("timetable.classes", len(entry.Records)))
	return entry, nil
}

// GetStatus reports the cache state
func (s *TimetableService) GetStatus(ctx context.Context) models.TimetableStatus {
	return s.cache.Status()
}
