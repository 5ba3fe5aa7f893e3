package transmission

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// BuildRequest produces the HTTP request for a call against a session.
// The session token header is only set once the session holds a token.
func BuildRequest(ctx context.Context, session *Session, call Call) (*http.Request, error) {
	if session == nil {
		return nil, ErrMissingEndpoint
	}

	body, err := EncodeRequest(call)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, session.Endpoint().URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	creds := session.Credentials()
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.Username, creds.Password)
	if token := session.Token(); token != "" {
		req.Header.Set(SessionIDHeader, token)
	}

	return req, nil
}
