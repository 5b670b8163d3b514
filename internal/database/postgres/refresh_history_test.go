package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umstimetable/timetable-api/internal/models"
)

type recordingExecer struct {
	sql  string
	args []any
	err  error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

func TestInsertRefresh_Success(t *testing.T) {
	db := &recordingExecer{}
	c := &Client{db: db}
	started := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

	err := c.InsertRefresh(context.Background(), &models.RefreshRecord{
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Second),
		Status:     models.RefreshSuccess,
		ClassCount: 27,
	})

	require.NoError(t, err)
	assert.Contains(t, db.sql, "INSERT INTO refresh_history")
	require.Len(t, db.args, 6)
	assert.Equal(t, "success", db.args[2])
	assert.Nil(t, db.args[3])
	assert.Nil(t, db.args[4])
	assert.Equal(t, 27, db.args[5])
}

func TestInsertRefresh_FailureKeepsKind(t *testing.T) {
	db := &recordingExecer{}
	c := &Client{db: db}

	err := c.InsertRefresh(context.Background(), &models.RefreshRecord{
		Status:    models.RefreshFailure,
		ErrorKind: "session_expired",
		Error:     "session expired: empty timetable data",
	})

	require.NoError(t, err)
	kind, ok := db.args[3].(*string)
	require.True(t, ok)
	assert.Equal(t, "session_expired", *kind)
}

func TestInsertRefresh_ExecError(t *testing.T) {
	c := &Client{db: &recordingExecer{err: errors.New("connection refused")}}

	err := c.InsertRefresh(context.Background(), &models.RefreshRecord{Status: models.RefreshSuccess})

	assert.ErrorContains(t, err, "failed to insert refresh history")
}
