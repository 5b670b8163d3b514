package repository

import (
	"context"

	"github.com/umstimetable/timetable-api/internal/database/postgres"
	"github.com/umstimetable/timetable-api/internal/models"
)

// RefreshHistoryRepository handles refresh history data access
type RefreshHistoryRepository struct {
	client *postgres.Client
}

// NewRefreshHistoryRepository creates a new refresh history repository
func NewRefreshHistoryRepository(client *postgres.Client) *RefreshHistoryRepository {
	return &RefreshHistoryRepository{client: client}
}

// Record appends one refresh attempt
func (r *RefreshHistoryRepository) Record(ctx context.Context, rec *models.RefreshRecord) error {
	return r.client.InsertRefresh(ctx, rec)
}
