package transmission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 32 << 20

// Client is a Transmission RPC client bound to one Session
type Client struct {
	session      *Session
	http         Doer
	timeout      time.Duration
	staleRetries int
	logger       zerolog.Logger
}

// NewClient creates a new Transmission client for an existing session
func NewClient(session *Session, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if session == nil {
		return nil, ErrMissingEndpoint
	}

	c := &Client{
		session:      session,
		http:         &http.Client{},
		timeout:      DefaultTimeout,
		staleRetries: DefaultStaleSessionRetries,
		logger:       logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NewHostClient creates a client with a fresh Session for a configured host
func NewHostClient(host Host, password string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	session, err := NewSession(host.Endpoint(), Credentials{
		Username: host.Username,
		Password: password,
	})
	if err != nil {
		if host.Name != "" {
			return nil, fmt.Errorf("host %s: %w", host.Name, err)
		}
		return nil, err
	}

	return NewClient(session, logger.With().Str("host", host.Name).Logger(), opts...)
}

// Session returns the client's session
func (c *Client) Session() *Session {
	return c.session
}

// call runs the request/response state machine for one logical call and
// returns the body of the 200 response.
//
//	transport error -> ConfigError, no retry
//	409             -> store token, reissue (at most staleRetries times)
//	401             -> Forbidden
//	200             -> body
//	other           -> Failed with body
func (c *Client) call(ctx context.Context, rpc Call) ([]byte, error) {
	method := rpc.Method()
	logger := c.logger.With().
		Str("method", method).
		Str("call_id", uuid.NewString()).
		Logger()

	for attempt := 0; ; attempt++ {
		status, header, body, err := c.roundTrip(ctx, rpc)
		if err != nil {
			var rpcErr *Error
			if errors.As(err, &rpcErr) {
				return nil, rpcErr
			}
			logger.Debug().Err(err).Int("attempt", attempt).Msg("Transport failure")
			return nil, &Error{Outcome: OutcomeConfigError, Method: method, Err: err}
		}

		logger.Debug().Int("attempt", attempt).Int("status", status).Msg("RPC response")

		switch status {
		case http.StatusOK:
			return body, nil

		case http.StatusConflict:
			token := header.Get(SessionIDHeader)
			if token == "" {
				return nil, &Error{
					Outcome:    OutcomeFailed,
					Method:     method,
					StatusCode: status,
					Body:       string(body),
					Err:        fmt.Errorf("%w: 409 without %s header", ErrStaleSession, SessionIDHeader),
				}
			}
			c.session.Update(token)
			if attempt >= c.staleRetries {
				return nil, &Error{
					Outcome:    OutcomeFailed,
					Method:     method,
					StatusCode: status,
					Body:       string(body),
					Err:        fmt.Errorf("%w after %d retries", ErrStaleSession, attempt),
				}
			}
			logger.Debug().Msg("Session token refreshed, reissuing request")

		case http.StatusUnauthorized:
			logger.Warn().Msg("Credentials rejected by server")
			return nil, &Error{
				Outcome:    OutcomeForbidden,
				Method:     method,
				StatusCode: status,
				Body:       string(body),
				Err:        ErrForbidden,
			}

		default:
			return nil, &Error{
				Outcome:    OutcomeFailed,
				Method:     method,
				StatusCode: status,
				Body:       string(body),
				Err:        fmt.Errorf("%w %d", ErrUnexpectedStatus, status),
			}
		}
	}
}

// roundTrip sends one attempt under its own deadline and reads the body
func (c *Client) roundTrip(ctx context.Context, rpc Call) (int, http.Header, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := BuildRequest(ctx, c.session, rpc)
	if err != nil {
		return 0, nil, nil, &Error{Outcome: OutcomeFailed, Method: rpc.Method(), Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// decodeError wraps a decoder failure on a 200 response
func decodeError(method string, body []byte, err error) error {
	var rej *rejection
	if errors.As(err, &rej) {
		return &Error{Outcome: OutcomeRejected, Method: method, StatusCode: http.StatusOK, Body: rej.reason, Err: err}
	}
	return &Error{Outcome: OutcomeFailed, Method: method, StatusCode: http.StatusOK, Body: string(body), Err: err}
}
