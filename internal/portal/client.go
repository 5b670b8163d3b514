// Package portal talks to the university management system: it logs in
// through the captcha protected form and fetches the weekly timetable.
package portal

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"github.com/umstimetable/timetable-api/pkg/retry"
	"go.uber.org/zap"
)

const (
	loginPath     = "/lpuums/LoginNew.aspx"
	captchaPath   = "/LpuUms/BotDetectCaptcha.ashx"
	timetablePath = "/lpuums/frmMyCurrentTimeTable.aspx/GetTimeTable"
	timetablePage = "/lpuums/frmMyCurrentTimeTable.aspx"

	desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	mobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 18_5 like Mac OS X) AppleWebKit/605.1.15"
)

// ClientOptions configures the portal transport
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Client is the HTTP transport toward the portal. It does not keep cookies
// itself; the session jar is attached to each request explicitly.
type Client struct {
	http    *resty.Client
	baseURL *url.URL
	retry   retry.Config
}

// NewClient creates the portal transport.
//
// Certificate verification is off: the portal is known to serve broken
// chains. Redirects are never followed so a login redirect can be inspected.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, apperrors.New(apperrors.KindNetwork, "invalid portal base URL "+opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(base.String())
	client.SetTimeout(opts.Timeout)
	client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // portal certificates are degraded
	client.SetCookieJar(nil)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	client.SetHeader("User-Agent", desktopUserAgent)

	return &Client{
		http:    client,
		baseURL: base,
		retry:   retry.FixedConfig(opts.Retries, opts.RetryDelay),
	}, nil
}

// BaseURL returns the portal origin, e.g. https://ums.lpu.in
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SameOrigin reports whether a Location header stays on the portal
func (c *Client) SameOrigin(location string) bool {
	target, err := url.Parse(location)
	if err != nil {
		return false
	}
	if target.Host == "" {
		return true
	}
	return strings.EqualFold(target.Host, c.baseURL.Host)
}

// do sends one logical request. Transport failures are retried with a fixed
// delay; any HTTP status is returned to the caller as is.
func (c *Client) do(ctx context.Context, operation string, send func(r *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	start := time.Now()

	res, err := retry.DoWithResult(ctx, c.retry, "portal."+operation, func() (*resty.Response, error) {
		return send(c.http.R().SetContext(ctx))
	})

	duration := metrics.MeasureDuration(start)
	if err != nil {
		metrics.PortalRequestDuration.WithLabelValues(operation, "error").Observe(duration)
		metrics.PortalRequestTotal.WithLabelValues(operation, "error").Inc()
		logger.LogAPICall("portal", operation, "error", duration, zap.Error(err))
		return nil, apperrors.NetworkError(operation, err)
	}

	status := strconv.Itoa(res.StatusCode())
	metrics.PortalRequestDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.PortalRequestTotal.WithLabelValues(operation, status).Inc()
	logger.Debug("Portal request",
		zap.String("operation", operation),
		zap.Int("status", res.StatusCode()),
		zap.Float64("duration", duration))

	return res, nil
}

func withCookies(r *resty.Request, header string) *resty.Request {
	if header != "" {
		r.SetHeader("Cookie", header)
	}
	return r
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}
