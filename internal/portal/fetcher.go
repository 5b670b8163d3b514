package portal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/umstimetable/timetable-api/internal/models"
	"github.com/umstimetable/timetable-api/internal/parser"
	"github.com/umstimetable/timetable-api/internal/session"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"github.com/umstimetable/timetable-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultMaxRetries is how many times an expired session is re-established per fetch
const DefaultMaxRetries = 3

type timetablePayload struct {
	D string `json:"d"`
}

// Fetcher retrieves the timetable with the shared session, logging in first when needed
type Fetcher struct {
	client     *Client
	store      *session.Store
	auth       SessionAuthenticator
	termID     string
	maxRetries int
}

// NewFetcher creates a fetcher. A negative maxRetries means DefaultMaxRetries.
func NewFetcher(client *Client, store *session.Store, auth SessionAuthenticator, termID string, maxRetries int) *Fetcher {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Fetcher{
		client:     client,
		store:      store,
		auth:       auth,
		termID:     termID,
		maxRetries: maxRetries,
	}
}

// Fetch returns the parsed weekly timetable.
//
// A non-success status or a payload without markup means the session is no
// longer accepted: the session is dropped and the fetch is repeated with a
// fresh login, at most maxRetries times. Transport failures are not retried here.
func (f *Fetcher) Fetch(ctx context.Context) (records []models.ClassRecord, err error) {
	ctx, span := tracing.StartSpan(ctx, "portal.fetch_timetable")
	defer func() { tracing.EndSpan(span, err) }()

	for attempt := 0; ; attempt++ {
		if !f.store.Valid() {
			if err := f.auth.Authenticate(ctx); err != nil {
				return nil, err
			}
		}

		markup, err := f.requestTimetable(ctx)
		if err == nil {
			records, err = parser.ParseSchedule(markup)
			if err != nil {
				return nil, err
			}
			span.SetAttributes(attribute.Int("timetable.attempts", attempt+1), attribute.Int("timetable.classes", len(records)))
			return records, nil
		}

		if !apperrors.Is(err, apperrors.ErrSessionExpired) {
			return nil, err
		}

		f.store.Clear()
		if attempt >= f.maxRetries {
			logger.Error("Timetable session kept expiring",
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return nil, err
		}

		metrics.SessionExpiryRetries.Inc()
		logger.Warn("Portal session expired, logging in again",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", f.maxRetries),
			zap.Error(err))
	}
}

func (f *Fetcher) requestTimetable(ctx context.Context) (string, error) {
	base := f.client.BaseURL()

	res, err := f.client.do(ctx, "timetable", func(r *resty.Request) (*resty.Response, error) {
		return withCookies(r, f.store.Header()).
			SetHeaders(map[string]string{
				"User-Agent":       mobileUserAgent,
				"Accept":           "application/json, text/javascript, */*; q=0.01",
				"Content-Type":     "application/json; charset=UTF-8",
				"X-Requested-With": "XMLHttpRequest",
				"Origin":           base,
				"Referer":          base + timetablePage,
			}).
			SetBody(map[string]string{"TermId": f.termID}).
			Post(timetablePath)
	})
	if err != nil {
		return "", err
	}

	if !isSuccess(res.StatusCode()) {
		return "", apperrors.New(apperrors.KindSessionExpired, fmt.Sprintf("timetable request returned status %d", res.StatusCode()))
	}

	var payload timetablePayload
	if err := json.Unmarshal(res.Body(), &payload); err != nil || payload.D == "" {
		return "", apperrors.New(apperrors.KindSessionExpired, "session expired: empty timetable data")
	}

	return payload.D, nil
}
