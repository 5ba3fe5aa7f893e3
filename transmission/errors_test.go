package transmission

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "forbidden", OutcomeForbidden.String())
	assert.Equal(t, "config_error", OutcomeConfigError.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, OutcomeOf(nil))
	assert.Equal(t, OutcomeFailed, OutcomeOf(errors.New("plain")))

	wrapped := fmt.Errorf("listing: %w", &Error{Outcome: OutcomeForbidden, Err: ErrForbidden})
	assert.Equal(t, OutcomeForbidden, OutcomeOf(wrapped))
	assert.True(t, IsForbidden(wrapped))
	assert.False(t, IsConfigError(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Outcome:    OutcomeFailed,
		Method:     MethodTorrentGet,
		StatusCode: 500,
		Err:        ErrUnexpectedStatus,
	}
	assert.Equal(t, "transmission torrent-get: failed (status 500): unexpected HTTP status", err.Error())

	err = &Error{Outcome: OutcomeConfigError, Method: MethodSessionGet, Err: context.DeadlineExceeded}
	assert.Equal(t, "transmission session-get: config_error: context deadline exceeded", err.Error())
}

func TestDescribeTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "Server unreachable"},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), "Request timed out"},
		{"cancelled", context.Canceled, "Request cancelled"},
		{"dns", &net.DNSError{Name: "nas.local", Err: "no such host"}, "Failed to resolve hostname: nas.local"},
		{
			"refused",
			&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")},
			"Connection refused - server may be down or port is incorrect",
		},
		{"tls mismatch", errors.New("http: server gave HTTP response to HTTPS client; first record does not look like a TLS handshake"), "Protocol mismatch - check the host's TLS setting"},
		{"other", errors.New("boom"), "Server unreachable: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeTransportError(tt.err))
		})
	}
}

func TestDiagnosticPlainError(t *testing.T) {
	assert.Empty(t, Diagnostic(nil))
	assert.Equal(t, "boom", Diagnostic(errors.New("boom")))
	assert.Equal(t, "Server rejected the request", (&Error{Outcome: OutcomeRejected}).Diagnostic())
}
