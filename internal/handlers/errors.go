package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umstimetable/timetable-api/internal/models"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// statusForKind maps a pipeline error kind to the HTTP status returned to clients
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindRateLimited:
		return http.StatusTooManyRequests
	case apperrors.KindInsufficientCredit:
		return http.StatusServiceUnavailable
	case apperrors.KindNetwork:
		return http.StatusGatewayTimeout
	case apperrors.KindPageScrape,
		apperrors.KindCaptchaParam,
		apperrors.KindCaptchaImage,
		apperrors.KindPuzzleUnsolvable,
		apperrors.KindSessionEstablish,
		apperrors.KindSessionExpired:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
func respondError(c *gin.Context, status int, body models.ErrorResponse, err error) {
	attachError(c, err)
	c.JSON(status, body)
}

// respondPipelineError reports a failed refresh with its kind. Unclassified
// errors keep their message out of the response.
func respondPipelineError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	body := models.ErrorResponse{
		Success:   false,
		ErrorKind: string(kind),
		Error:     err.Error(),
	}
	if kind == "" {
		body.Error = "Internal server error"
	}
	respondError(c, statusForKind(kind), body, err)
}
