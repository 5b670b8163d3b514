package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/umstimetable/timetable-api/internal/models"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"go.uber.org/zap"
)

const insertRefreshQuery = `
	INSERT INTO refresh_history (started_at, finished_at, status, error_kind, error, class_count)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// InsertRefresh appends one refresh attempt to the history table
func (c *Client) InsertRefresh(ctx context.Context, rec *models.RefreshRecord) error {
	start := time.Now()
	operation := "insertRefresh"

	_, err := c.db.Exec(ctx, insertRefreshQuery,
		rec.StartedAt,
		rec.FinishedAt,
		string(rec.Status),
		nilIfEmpty(rec.ErrorKind),
		nilIfEmpty(rec.Error),
		rec.ClassCount,
	)

	duration := metrics.MeasureDuration(start)

	if err != nil {
		recordMetrics(operation, "error", duration)
		logger.LogAPICall("postgres", operation, "error", duration, zap.Error(err))
		return fmt.Errorf("failed to insert refresh history: %w", err)
	}

	recordMetrics(operation, "success", duration)
	logger.LogAPICall("postgres", operation, "success", duration)

	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
