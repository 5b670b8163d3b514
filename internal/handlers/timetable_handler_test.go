package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/umstimetable/timetable-api/internal/models"
	"github.com/umstimetable/timetable-api/internal/services"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
)

type mockTimetableService struct {
	mock.Mock
}

func (m *mockTimetableService) GetSchedule(ctx context.Context) (models.Timetable, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Timetable), args.Error(1)
}

func (m *mockTimetableService) RefreshSchedule(ctx context.Context) (models.Timetable, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Timetable), args.Error(1)
}

func (m *mockTimetableService) GetStatus(ctx context.Context) models.TimetableStatus {
	args := m.Called(ctx)
	return args.Get(0).(models.TimetableStatus)
}

var fetchedAt = time.Date(2024, 9, 2, 8, 30, 15, 250_000_000, time.UTC)

func sampleTimetable() models.Timetable {
	return models.Timetable{
		Records: []models.ClassRecord{
			{Day: "Monday", CourseCode: "CAP455", AttendanceTime: "09-10 AM", Type: models.ClassLecture},
		},
		FetchedAt: fetchedAt,
	}
}

func setupTimetableRouter(svc services.TimetableServiceInterface) *gin.Engine {
	h := NewTimetableHandler(svc)
	router := gin.New()
	router.GET("/api/timetable", h.GetTimetable)
	router.POST("/api/timetable/refresh", h.RefreshTimetable)
	router.GET("/api/timetable/status", h.GetStatus)
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
	return w
}

func TestTimetableHandler_GetTimetable(t *testing.T) {
	svc := new(mockTimetableService)
	svc.On("GetSchedule", mock.Anything).Return(sampleTimetable(), nil)

	w := serve(setupTimetableRouter(svc), "GET", "/api/timetable")

	require.Equal(t, http.StatusOK, w.Code)
	var body models.TimetableResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Cached)
	assert.Equal(t, 1, body.ClassCount)
	assert.Equal(t, "2024-09-02T08:30:15.250Z", body.Timestamp)
	assert.Equal(t, "CAP455", body.Data[0].CourseCode)
}

func TestTimetableHandler_GetTimetableNotAvailable(t *testing.T) {
	svc := new(mockTimetableService)
	svc.On("GetSchedule", mock.Anything).Return(models.Timetable{}, services.ErrNoTimetable)

	w := serve(setupTimetableRouter(svc), "GET", "/api/timetable")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{
		"success": false,
		"error": "No timetable data. Please refresh first.",
		"hint": "Call POST /api/timetable/refresh to fetch your timetable."
	}`, w.Body.String())
}

func TestTimetableHandler_Refresh(t *testing.T) {
	svc := new(mockTimetableService)
	svc.On("RefreshSchedule", mock.Anything).Return(sampleTimetable(), nil)

	w := serve(setupTimetableRouter(svc), "POST", "/api/timetable/refresh")

	require.Equal(t, http.StatusOK, w.Code)
	var body models.TimetableResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Cached)
	assert.Equal(t, 1, body.ClassCount)
}

func TestTimetableHandler_RefreshRateLimited(t *testing.T) {
	svc := new(mockTimetableService)
	svc.On("RefreshSchedule", mock.Anything).
		Return(models.Timetable{}, &apperrors.RateLimitedError{Remaining: 9*time.Minute + 5*time.Second + 700*time.Millisecond})

	w := serve(setupTimetableRouter(svc), "POST", "/api/timetable/refresh")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{
		"success": false,
		"rateLimited": true,
		"message": "Please wait 9m 5s before refreshing again",
		"remainingTime": {"minutes": 9, "seconds": 5, "totalSeconds": 545}
	}`, w.Body.String())
}

func TestTimetableHandler_RefreshErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantError  string
	}{
		{
			name:       "insufficient credit",
			err:        apperrors.New(apperrors.KindInsufficientCredit, "captcha solver balance $0.0001 is below the minimum $0.0010"),
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "insufficient_credit",
			wantError:  "captcha solver balance $0.0001 is below the minimum $0.0010",
		},
		{
			name:       "session expired",
			err:        apperrors.New(apperrors.KindSessionExpired, "session expired: empty timetable data"),
			wantStatus: http.StatusBadGateway,
			wantKind:   "session_expired",
			wantError:  "session expired: empty timetable data",
		},
		{
			name:       "page scrape",
			err:        apperrors.PageScrapeError("__VIEWSTATE"),
			wantStatus: http.StatusBadGateway,
			wantKind:   "page_scrape",
			wantError:  "login page is missing field __VIEWSTATE",
		},
		{
			name:       "network",
			err:        apperrors.NetworkError("timetable", errors.New("i/o timeout")),
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   "network",
			wantError:  "request failed: timetable: i/o timeout",
		},
		{
			name:       "unclassified",
			err:        errors.New("nil pointer somewhere"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockTimetableService)
			svc.On("RefreshSchedule", mock.Anything).Return(models.Timetable{}, tt.err)

			w := serve(setupTimetableRouter(svc), "POST", "/api/timetable/refresh")

			assert.Equal(t, tt.wantStatus, w.Code)
			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantKind, body.ErrorKind)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestTimetableHandler_StatusCached(t *testing.T) {
	svc := new(mockTimetableService)
	svc.On("GetStatus", mock.Anything).Return(models.TimetableStatus{
		HasCache:           true,
		ClassCount:         27,
		FetchedAt:          fetchedAt,
		MinutesAgo:         0,
		NextRefreshAllowed: false,
	})

	w := serve(setupTimetableRouter(svc), "GET", "/api/timetable/status")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"success": true,
		"cached": true,
		"classCount": 27,
		"timestamp": "2024-09-02T08:30:15.250Z",
		"minutesAgo": 0,
		"nextRefreshAllowed": false
	}`, w.Body.String())
}

func TestTimetableHandler_StatusEmpty(t *testing.T) {
	svc := new(mockTimetableService)
	svc.On("GetStatus", mock.Anything).Return(models.TimetableStatus{NextRefreshAllowed: true})

	w := serve(setupTimetableRouter(svc), "GET", "/api/timetable/status")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"cached":false,"message":"No cached data available"}`, w.Body.String())
}
