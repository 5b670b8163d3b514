package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure of the timetable pipeline
type Kind string

const (
	KindPageScrape         Kind = "page_scrape"
	KindCaptchaParam       Kind = "captcha_param"
	KindCaptchaImage       Kind = "captcha_image"
	KindInsufficientCredit Kind = "insufficient_credit"
	KindPuzzleUnsolvable   Kind = "puzzle_unsolvable"
	KindSessionEstablish   Kind = "session_establish"
	KindSessionExpired     Kind = "session_expired"
	KindNetwork            Kind = "network"
	KindRateLimited        Kind = "rate_limited"
)

// Sentinels for errors.Is checks. Every *Error matches the sentinel of its kind.
var (
	ErrPageScrape         = errors.New("login page scrape failed")
	ErrCaptchaParam       = errors.New("captcha parameters unavailable")
	ErrCaptchaImage       = errors.New("captcha image unavailable")
	ErrInsufficientCredit = errors.New("insufficient captcha solver balance")
	ErrPuzzleUnsolvable   = errors.New("captcha puzzle unsolvable")
	ErrSessionEstablish   = errors.New("no session cookies received")
	ErrSessionExpired     = errors.New("session expired")
	ErrNetwork            = errors.New("network error")
	ErrRateLimited        = errors.New("rate limited")
)

var sentinels = map[Kind]error{
	KindPageScrape:         ErrPageScrape,
	KindCaptchaParam:       ErrCaptchaParam,
	KindCaptchaImage:       ErrCaptchaImage,
	KindInsufficientCredit: ErrInsufficientCredit,
	KindPuzzleUnsolvable:   ErrPuzzleUnsolvable,
	KindSessionEstablish:   ErrSessionEstablish,
	KindSessionExpired:     ErrSessionExpired,
	KindNetwork:            ErrNetwork,
	KindRateLimited:        ErrRateLimited,
}

// Error is a classified pipeline error with a human-readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// New creates a classified error
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error around a cause
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// PageScrapeError reports a login page missing a required hidden field
func PageScrapeError(field string) error {
	return New(KindPageScrape, fmt.Sprintf("login page is missing field %s", field))
}

// NetworkError wraps a transport failure for the named operation
func NetworkError(operation string, err error) error {
	return Wrap(KindNetwork, fmt.Sprintf("request failed: %s", operation), err)
}

// RateLimitedError is returned when a refresh is attempted before the TTL elapsed.
// It is a wait hint, not a failure of the pipeline.
type RateLimitedError struct {
	Remaining time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("refresh rate limited, retry in %s", e.Remaining.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RemainingSeconds returns the wait rounded down to whole seconds
func (e *RateLimitedError) RemainingSeconds() int {
	return int(e.Remaining / time.Second)
}

// KindOf returns the kind of a classified error, or "" when err is not classified
func KindOf(err error) Kind {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return KindRateLimited
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
