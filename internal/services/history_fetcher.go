package services

import (
	"context"
	"time"

	"github.com/umstimetable/timetable-api/internal/cache"
	"github.com/umstimetable/timetable-api/internal/models"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"go.uber.org/zap"
)

const historyWriteTimeout = 5 * time.Second

// HistoryFetcher records every portal fetch it performs. It sits between the
// cache and the portal so joined and rate limited refreshes are not recorded.
type HistoryFetcher struct {
	next     cache.TimetableFetcher
	recorder HistoryRecorder
	now      func() time.Time
}

// NewHistoryFetcher wraps next. A nil clock uses time.Now.
func NewHistoryFetcher(next cache.TimetableFetcher, recorder HistoryRecorder, now func() time.Time) *HistoryFetcher {
	if now == nil {
		now = time.Now
	}
	return &HistoryFetcher{next: next, recorder: recorder, now: now}
}

// Fetch delegates to the wrapped fetcher; history write failures only get logged
func (f *HistoryFetcher) Fetch(ctx context.Context) ([]models.ClassRecord, error) {
	started := f.now()
	records, err := f.next.Fetch(ctx)

	rec := &models.RefreshRecord{
		StartedAt:  started,
		FinishedAt: f.now(),
		Status:     models.RefreshSuccess,
		ClassCount: len(records),
	}
	if err != nil {
		rec.Status = models.RefreshFailure
		rec.ErrorKind = string(apperrors.KindOf(err))
		rec.Error = err.Error()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	if werr := f.recorder.Record(writeCtx, rec); werr != nil {
		logger.Warn("Failed to record refresh history", zap.Error(werr))
	}

	return records, err
}

var _ cache.TimetableFetcher = (*HistoryFetcher)(nil)
