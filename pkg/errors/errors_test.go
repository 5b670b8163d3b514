package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("fetch: %w", New(KindSessionExpired, "empty timetable data"))

	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, KindSessionExpired, KindOf(err))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NetworkError("GetTimeTable", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "request failed: GetTimeTable: connection reset", err.Error())
}

func TestRateLimitedError(t *testing.T) {
	err := &RateLimitedError{Remaining: 9*time.Minute + 30*time.Second + 400*time.Millisecond}

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, 570, err.RemainingSeconds())
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
