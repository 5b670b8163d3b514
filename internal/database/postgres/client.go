package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
)

// execer is the part of the pool the history writer needs
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Client wraps a pgx connection pool with observability
type Client struct {
	pool *pgxpool.Pool
	db   execer
}

// NewClient wraps an open pool
func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool, db: pool}
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
}

// recordMetrics records database operation metrics
func recordMetrics(operation, status string, duration float64) {
	metrics.DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
}
