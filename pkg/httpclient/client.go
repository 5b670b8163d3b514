package httpclient

import (
	"net/http"
	"time"
)

// Client is the outbound HTTP dependency of the captcha solver client, so
// tests can swap in a testify mock instead of a live provider.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClientWithTimeout returns an *http.Client bounded by timeout per request.
// Unlike the portal transport it keeps TLS verification on: the solver
// provider runs a valid certificate.
func NewClientWithTimeout(timeout time.Duration) Client {
	return &http.Client{Timeout: timeout}
}
