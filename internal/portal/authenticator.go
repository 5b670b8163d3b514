package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/umstimetable/timetable-api/internal/session"
	"github.com/umstimetable/timetable-api/pkg/botdetect"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"github.com/umstimetable/timetable-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CaptchaSolver is the OCR provider
type CaptchaSolver interface {
	GetBalance(ctx context.Context) (float64, error)
	SolveImage(ctx context.Context, image []byte) (string, error)
}

// CaptchaArchive stores captcha images for later inspection
type CaptchaArchive interface {
	Save(ctx context.Context, vcid string, issuedAt time.Time, image []byte, solvedText string) (string, error)
}

// SessionAuthenticator establishes the shared portal session
type SessionAuthenticator interface {
	Authenticate(ctx context.Context) error
}

// AuthOptions configures an Authenticator
type AuthOptions struct {
	Username            string
	Password            string
	MinBalance          float64
	SessionTTL          time.Duration
	PuzzleMaxIterations int
	// Verbose allows solved captcha text in debug logs
	Verbose bool
	// Archive is optional
	Archive CaptchaArchive
	Now     func() time.Time
}

// Authenticator runs the captcha login and installs the resulting cookies in the store
type Authenticator struct {
	client  *Client
	store   *session.Store
	solver  CaptchaSolver
	puzzle  *botdetect.Solver
	archive CaptchaArchive
	opts    AuthOptions
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(client *Client, store *session.Store, solver CaptchaSolver, opts AuthOptions) *Authenticator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	return &Authenticator{
		client:  client,
		store:   store,
		solver:  solver,
		puzzle:  botdetect.NewSolver(opts.PuzzleMaxIterations),
		archive: opts.Archive,
		opts:    opts,
	}
}

// Authenticate logs in from scratch. The attempt runs to completion even if
// ctx is cancelled; every request is bounded by the client timeout instead.
// Any failure leaves the store empty.
func (a *Authenticator) Authenticate(ctx context.Context) (err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracing.StartSpan(ctx, "portal.authenticate")
	start := time.Now()

	defer func() {
		outcome := "success"
		if err != nil {
			a.store.Clear()
			outcome = string(apperrors.KindOf(err))
			if outcome == "" {
				outcome = "unknown"
			}
			logger.Error("Portal login failed",
				zap.String("error_kind", outcome),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
		}
		metrics.LoginAttempts.WithLabelValues(outcome).Inc()
		tracing.EndSpan(span, err)
	}()

	logger.Info("Starting portal login")

	var jar session.Jar

	form, err := runStep(ctx, "fetch_login_form", func(ctx context.Context) (*LoginFormState, error) {
		return a.fetchLoginForm(ctx, &jar)
	})
	if err != nil {
		return err
	}

	challenge, err := runStep(ctx, "fetch_captcha_params", func(ctx context.Context) (*CaptchaChallenge, error) {
		return a.fetchCaptchaParams(ctx, form, &jar)
	})
	if err != nil {
		return err
	}

	challenge.Image, err = runStep(ctx, "fetch_captcha_image", func(ctx context.Context) ([]byte, error) {
		return a.fetchCaptchaImage(ctx, challenge, &jar)
	})
	if err != nil {
		return err
	}

	text, err := runStep(ctx, "solve_captcha", func(ctx context.Context) (string, error) {
		return a.solveCaptchaText(ctx, challenge.Image)
	})
	if err != nil {
		return err
	}

	transformed, err := runStep(ctx, "transform_captcha", func(context.Context) (string, error) {
		return a.puzzle.Transform(text, challenge.Seed, challenge.VCID, challenge.Hash)
	})
	if err != nil {
		return err
	}
	if a.opts.Verbose {
		logger.Debug("Captcha text transformed",
			zap.String("vcid", challenge.VCID),
			zap.String("ocr_text", text),
			zap.String("transformed", transformed))
	}

	a.archiveCaptcha(ctx, challenge, transformed)

	_, err = runStep(ctx, "submit_login", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.submitLogin(ctx, form, transformed, &jar)
	})
	if err != nil {
		return err
	}

	a.store.Replace(jar, a.opts.SessionTTL)

	logger.Info("Portal login succeeded",
		zap.Int("cookies", jar.Len()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func runStep[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartSpan(ctx, "portal.login."+name, attribute.String("login.step", name))
	start := time.Now()

	v, err := fn(ctx)

	metrics.LoginStepDuration.WithLabelValues(name).Observe(metrics.MeasureDuration(start))
	tracing.EndSpan(span, err)
	return v, err
}

func (a *Authenticator) fetchLoginForm(ctx context.Context, jar *session.Jar) (*LoginFormState, error) {
	res, err := a.client.do(ctx, "login_page", func(r *resty.Request) (*resty.Response, error) {
		return r.Get(loginPath)
	})
	if err != nil {
		return nil, err
	}
	if !isSuccess(res.StatusCode()) {
		return nil, apperrors.New(apperrors.KindPageScrape, fmt.Sprintf("login page returned status %d", res.StatusCode()))
	}

	// Only the analytics cookie is carried into the rest of the attempt
	for _, c := range res.Cookies() {
		if c.Name == AnalyticsCookie {
			jar.Set(c.Name, c.Value)
		}
	}

	return ParseLoginForm(res.Body())
}

func (a *Authenticator) fetchCaptchaParams(ctx context.Context, form *LoginFormState, jar *session.Jar) (*CaptchaChallenge, error) {
	issuedAt := a.opts.Now().UnixMilli()

	res, err := a.client.do(ctx, "captcha_params", func(r *resty.Request) (*resty.Response, error) {
		return withCookies(r, jar.Header()).
			SetQueryParams(captchaQuery("p", form.CaptchaVCID, issuedAt)).
			Get(captchaPath)
	})
	if err != nil {
		return nil, err
	}
	if !isSuccess(res.StatusCode()) {
		return nil, apperrors.New(apperrors.KindCaptchaParam, fmt.Sprintf("captcha parameters returned status %d", res.StatusCode()))
	}

	var params captchaParams
	dec := json.NewDecoder(bytes.NewReader(res.Body()))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, apperrors.Wrap(apperrors.KindCaptchaParam, "captcha parameters are not valid JSON", err)
	}

	seed, ok := params.seed()
	if !ok {
		return nil, apperrors.New(apperrors.KindCaptchaParam, "captcha parameters are missing sp")
	}
	if params.HS == "" {
		return nil, apperrors.New(apperrors.KindCaptchaParam, "captcha parameters are missing hs")
	}

	return &CaptchaChallenge{
		VCID:     form.CaptchaVCID,
		Seed:     seed,
		Hash:     params.HS,
		IssuedAt: issuedAt,
	}, nil
}

func (a *Authenticator) fetchCaptchaImage(ctx context.Context, challenge *CaptchaChallenge, jar *session.Jar) ([]byte, error) {
	res, err := a.client.do(ctx, "captcha_image", func(r *resty.Request) (*resty.Response, error) {
		return withCookies(r, jar.Header()).
			SetQueryParams(captchaQuery("image", challenge.VCID, challenge.IssuedAt)).
			Get(captchaPath)
	})
	if err != nil {
		return nil, err
	}
	if !isSuccess(res.StatusCode()) {
		return nil, apperrors.New(apperrors.KindCaptchaImage, fmt.Sprintf("captcha image returned status %d", res.StatusCode()))
	}
	if len(res.Body()) == 0 {
		return nil, apperrors.New(apperrors.KindCaptchaImage, "captcha image is empty")
	}
	return res.Body(), nil
}

// solveCaptchaText checks the provider balance first so a drained account
// never spends a solve request
func (a *Authenticator) solveCaptchaText(ctx context.Context, image []byte) (string, error) {
	balance, err := a.solver.GetBalance(ctx)
	if err != nil {
		return "", apperrors.NetworkError("captcha balance", err)
	}
	if balance < a.opts.MinBalance {
		return "", apperrors.New(apperrors.KindInsufficientCredit,
			fmt.Sprintf("captcha solver balance $%.4f is below the minimum $%.4f", balance, a.opts.MinBalance))
	}

	text, err := a.solver.SolveImage(ctx, image)
	if err != nil {
		return "", apperrors.NetworkError("captcha solve", err)
	}
	if text == "" {
		return "", apperrors.New(apperrors.KindCaptchaImage, "captcha solver returned no text")
	}
	return text, nil
}

func (a *Authenticator) archiveCaptcha(ctx context.Context, challenge *CaptchaChallenge, solved string) {
	if a.archive == nil {
		return
	}
	if _, err := a.archive.Save(ctx, challenge.VCID, time.UnixMilli(challenge.IssuedAt), challenge.Image, solved); err != nil {
		logger.Warn("Failed to archive captcha image", zap.String("vcid", challenge.VCID), zap.Error(err))
	}
}

func (a *Authenticator) submitLogin(ctx context.Context, form *LoginFormState, captchaText string, jar *session.Jar) error {
	res, err := a.client.do(ctx, "login_submit", func(r *resty.Request) (*resty.Response, error) {
		return withCookies(r, jar.Header()).
			SetFormData(form.LoginValues(a.opts.Username, a.opts.Password, captchaText)).
			Post(loginPath)
	})
	if err != nil {
		return err
	}

	status := res.StatusCode()
	switch {
	case isSuccess(status):
	case isRedirect(status):
		if location := res.Header().Get("Location"); !a.client.SameOrigin(location) {
			return apperrors.New(apperrors.KindSessionEstablish, "login redirected off the portal")
		}
	default:
		return apperrors.New(apperrors.KindSessionEstablish, "login rejected with status "+strconv.Itoa(status))
	}

	if merged := jar.Merge(res.Cookies()); merged == 0 {
		return apperrors.New(apperrors.KindSessionEstablish, "no session cookies received")
	}
	return nil
}

func captchaQuery(kind, vcid string, issuedAt int64) map[string]string {
	return map[string]string{
		"get": kind,
		"c":   captchaID,
		"t":   vcid,
		"d":   strconv.FormatInt(issuedAt, 10),
	}
}

var _ SessionAuthenticator = (*Authenticator)(nil)
