package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/umstimetable/timetable-api/internal/models"
	"github.com/umstimetable/timetable-api/internal/services"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
)

// timestampLayout matches the millisecond ISO-8601 form web clients already parse
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// TimetableHandler serves the /api/timetable routes
type TimetableHandler struct {
	service services.TimetableServiceInterface
}

// NewTimetableHandler creates a handler backed by the timetable service
func NewTimetableHandler(service services.TimetableServiceInterface) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// GetTimetable serves the cached timetable
func (h *TimetableHandler) GetTimetable(c *gin.Context) {
	entry, err := h.service.GetSchedule(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoTimetable) {
			respondError(c, http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   "No timetable data. Please refresh first.",
				Hint:    "Call POST /api/timetable/refresh to fetch your timetable.",
			}, nil)
			return
		}
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, timetableResponse(entry, true))
}

// RefreshTimetable fetches a fresh timetable from the portal
func (h *TimetableHandler) RefreshTimetable(c *gin.Context) {
	entry, err := h.service.RefreshSchedule(c.Request.Context())
	if err != nil {
		var rl *apperrors.RateLimitedError
		if errors.As(err, &rl) {
			c.JSON(http.StatusTooManyRequests, rateLimitedResponse(rl.Remaining))
			return
		}
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, timetableResponse(entry, false))
}

// GetStatus reports whether a timetable is cached and if a refresh is allowed
func (h *TimetableHandler) GetStatus(c *gin.Context) {
	status := h.service.GetStatus(c.Request.Context())

	if !status.HasCache {
		c.JSON(http.StatusOK, models.TimetableStatusResponse{
			Success: true,
			Cached:  false,
			Message: "No cached data available",
		})
		return
	}

	minutesAgo := status.MinutesAgo
	nextAllowed := status.NextRefreshAllowed
	c.JSON(http.StatusOK, models.TimetableStatusResponse{
		Success:            true,
		Cached:             true,
		ClassCount:         status.ClassCount,
		Timestamp:          formatTimestamp(status.FetchedAt),
		MinutesAgo:         &minutesAgo,
		NextRefreshAllowed: &nextAllowed,
	})
}

func timetableResponse(entry models.Timetable, cached bool) models.TimetableResponse {
	data := entry.Records
	if data == nil {
		data = []models.ClassRecord{}
	}
	return models.TimetableResponse{
		Success:    true,
		Data:       data,
		Cached:     cached,
		Timestamp:  formatTimestamp(entry.FetchedAt),
		ClassCount: len(data),
	}
}

func rateLimitedResponse(remaining time.Duration) models.RateLimitedResponse {
	total := int(remaining / time.Second)
	minutes, seconds := total/60, total%60
	return models.RateLimitedResponse{
		Success:     false,
		RateLimited: true,
		Message:     fmt.Sprintf("Please wait %dm %ds before refreshing again", minutes, seconds),
		RemainingTime: models.RemainingTime{
			Minutes:      minutes,
			Seconds:      seconds,
			TotalSeconds: total,
		},
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
