package transmission

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Common errors returned by the Transmission client.
var (
	// ErrMissingEndpoint indicates a session was built without a host or port.
	ErrMissingEndpoint = errors.New("transmission endpoint is not configured")

	// ErrMissingCredentials indicates a session was built without a username.
	ErrMissingCredentials = errors.New("transmission credentials are not configured")

	// ErrForbidden indicates the daemon rejected the credentials (HTTP 401).
	ErrForbidden = errors.New("invalid username or password")

	// ErrStaleSession indicates the session token could not be refreshed.
	ErrStaleSession = errors.New("session token rejected after refresh")

	// ErrMalformedResponse indicates a 200 response whose body did not have the expected shape.
	ErrMalformedResponse = errors.New("could not parse server response")

	// ErrRejected indicates the daemon answered but refused the request.
	ErrRejected = errors.New("request rejected by server")

	// ErrUnexpectedStatus indicates any HTTP status other than 200, 401 or 409.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrTorrentNotFound indicates the requested transfer id is unknown to the daemon.
	ErrTorrentNotFound = errors.New("torrent not found")
)

// Outcome is the result category of an RPC call
type Outcome int

const (
	// OutcomeSuccess means the call succeeded
	OutcomeSuccess Outcome = iota
	// OutcomeForbidden means the credentials were rejected
	OutcomeForbidden
	// OutcomeConfigError means no response was received (network, DNS, TLS, timeout)
	OutcomeConfigError
	// OutcomeFailed means a response was received but could not be used
	OutcomeFailed
	// OutcomeRejected means the daemon reported a validation error in a 200 response
	OutcomeRejected
)

// String returns the string representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeConfigError:
		return "config_error"
	case OutcomeFailed:
		return "failed"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is returned by every Client operation that does not succeed.
// Body carries the raw response text, if any, for diagnostic display.
type Error struct {
	Outcome    Outcome
	Method     string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "transmission %s: %s", e.Method, e.Outcome)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostic returns text suitable for direct display in an error surface
func (e *Error) Diagnostic() string {
	switch e.Outcome {
	case OutcomeForbidden:
		return "Invalid username or password"
	case OutcomeConfigError:
		return describeTransportError(e.Err)
	case OutcomeRejected:
		if e.Body != "" {
			return fmt.Sprintf("Server rejected the request: %s", e.Body)
		}
		return "Server rejected the request"
	}

	if errors.Is(e.Err, ErrMalformedResponse) {
		return fmt.Sprintf("Could not parse server response: %s", e.Body)
	}
	if e.Body != "" {
		return e.Body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "Request failed"
}

// OutcomeOf classifies any error returned by the client. A nil error is a success.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Outcome
	}
	return OutcomeFailed
}

// Diagnostic returns display text for any error returned by the client
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Diagnostic()
	}
	return err.Error()
}

// IsForbidden checks if the error indicates rejected credentials
func IsForbidden(err error) bool {
	return OutcomeOf(err) == OutcomeForbidden
}

// IsConfigError checks if the error indicates that no response was received
func IsConfigError(err error) bool {
	return OutcomeOf(err) == OutcomeConfigError
}

// describeTransportError turns a network failure into a readable reason
func describeTransportError(err error) string {
	if err == nil {
		return "Server unreachable"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("Failed to resolve hostname: %s", dnsErr.Name)
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) {
		return "TLS certificate verification failed"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return "Connection timed out"
		}
		msg := opErr.Error()
		switch {
		case strings.Contains(msg, "connection refused"):
			return "Connection refused - server may be down or port is incorrect"
		case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
			return "Network unreachable - check network connectivity"
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"):
		return "Request timed out"
	case strings.Contains(lower, "first record does not look like a tls handshake"),
		strings.Contains(lower, "malformed http response"):
		return "Protocol mismatch - check the host's TLS setting"
	case strings.Contains(lower, "tls"), strings.Contains(lower, "x509"):
		return "TLS connection failed"
	}

	return fmt.Sprintf("Server unreachable: %v", err)
}
