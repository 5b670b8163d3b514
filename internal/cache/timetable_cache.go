package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/umstimetable/timetable-api/internal/models"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TimetableFetcher retrieves a fresh timetable from the portal
type TimetableFetcher interface {
	Fetch(ctx context.Context) ([]models.ClassRecord, error)
}

const (
	timetableKey   = "timetable"
	cacheName      = "timetable"
	refreshFlight  = "refresh"
	defaultRefresh = 10 * time.Minute
)

// TimetableCache keeps the last successful fetch in a single slot for one TTL
// and gates refreshes to one per TTL. Concurrent refreshes share one fetch.
type TimetableCache struct {
	cache   *gocache.Cache
	fetcher TimetableFetcher
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group

	// mu covers the slot and lastRefresh together so readers never see one
	// without the other
	mu          sync.RWMutex
	lastRefresh time.Time
}

// NewTimetableCache creates an empty cache. A nil clock uses time.Now.
func NewTimetableCache(fetcher TimetableFetcher, ttl time.Duration, now func() time.Time) *TimetableCache {
	if ttl <= 0 {
		ttl = defaultRefresh
	}
	if now == nil {
		now = time.Now
	}
	return &TimetableCache{
		// go-cache evicts the slot in wall time; reads also check FetchedAt
		// against the injected clock
		cache:   gocache.New(ttl, 2*ttl),
		fetcher: fetcher,
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached timetable while it is younger than the TTL.
// It never touches the network.
func (tc *TimetableCache) Get() (models.Timetable, bool) {
	tc.mu.RLock()
	entry, ok := tc.current()
	tc.mu.RUnlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues(cacheName).Inc()
		return models.Timetable{}, false
	}

	metrics.CacheHits.WithLabelValues(cacheName).Inc()
	return entry, true
}

// current returns the live entry. Callers hold tc.mu.
func (tc *TimetableCache) current() (models.Timetable, bool) {
	data, found := tc.cache.Get(timetableKey)
	if !found {
		return models.Timetable{}, false
	}

	entry, ok := data.(models.Timetable)
	if !ok {
		logger.Error("Invalid cache data type", zap.String("key", timetableKey))
		return models.Timetable{}, false
	}

	if tc.now().Sub(entry.FetchedAt) >= tc.ttl {
		return models.Timetable{}, false
	}
	return entry, true
}

// Refresh fetches a new timetable unless the last successful refresh is
// younger than the TTL, in which case *errors.RateLimitedError is returned.
// A failed fetch leaves the previous entry in place.
func (tc *TimetableCache) Refresh(ctx context.Context) (models.Timetable, error) {
	// callers leaving early must not abort a fetch others are waiting on
	ctx = context.WithoutCancel(ctx)

	v, err, shared := tc.group.Do(refreshFlight, func() (interface{}, error) {
		if remaining := tc.remaining(); remaining > 0 {
			return nil, &apperrors.RateLimitedError{Remaining: remaining}
		}
		return tc.refresh(ctx)
	})

	if err != nil {
		if apperrors.Is(err, apperrors.ErrRateLimited) {
			metrics.TimetableRefreshes.WithLabelValues("rate_limited").Inc()
		}
		return models.Timetable{}, err
	}

	if shared {
		logger.Debug("Joined in-flight timetable refresh")
	}
	return v.(models.Timetable), nil
}

func (tc *TimetableCache) refresh(ctx context.Context) (models.Timetable, error) {
	start := time.Now()
	logger.Info("Refreshing timetable")

	records, err := tc.fetcher.Fetch(ctx)
	if err != nil {
		metrics.TimetableRefreshes.WithLabelValues("failure").Inc()
		logger.Error("Timetable refresh failed",
			zap.String("error_kind", string(apperrors.KindOf(err))),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return models.Timetable{}, err
	}

	now := tc.now()
	entry := models.Timetable{Records: records, FetchedAt: now}
	tc.mu.Lock()
	tc.cache.Set(timetableKey, entry, gocache.DefaultExpiration)
	tc.lastRefresh = now
	tc.mu.Unlock()

	metrics.TimetableRefreshes.WithLabelValues("success").Inc()
	metrics.CacheSize.WithLabelValues(cacheName).Set(float64(len(records)))
	logger.Info("Timetable refreshed",
		zap.Int("classes", len(records)),
		zap.Duration("duration", time.Since(start)))

	return entry, nil
}

// Status describes the slot and whether a refresh would be accepted now
func (tc *TimetableCache) Status() models.TimetableStatus {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	status := models.TimetableStatus{NextRefreshAllowed: tc.remainingLocked() <= 0}

	entry, ok := tc.current()
	if !ok {
		return status
	}

	status.HasCache = true
	status.ClassCount = len(entry.Records)
	status.FetchedAt = entry.FetchedAt
	status.MinutesAgo = int(tc.now().Sub(entry.FetchedAt) / time.Minute)
	return status
}

// remaining is the time left until the next refresh is allowed
func (tc *TimetableCache) remaining() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.remainingLocked()
}

func (tc *TimetableCache) remainingLocked() time.Duration {
	if tc.lastRefresh.IsZero() {
		return 0
	}
	return tc.ttl - tc.now().Sub(tc.lastRefresh)
}
