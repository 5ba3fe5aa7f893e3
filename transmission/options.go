package transmission

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single HTTP attempt
	DefaultTimeout = 30 * time.Second

	// DefaultStaleSessionRetries is how many times a call is reissued after a 409
	DefaultStaleSessionRetries = 1
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport used to send requests.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout sets the deadline applied to each HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithStaleSessionRetries sets how many times a call is reissued after the
// daemon reports a stale session. Values below one are ignored.
func WithStaleSessionRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 1 {
			c.staleRetries = retries
		}
	}
}
