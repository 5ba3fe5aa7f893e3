package transmission

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	session, err := NewSession(NewEndpoint("seedbox", 9091, false), Credentials{Username: "admin", Password: "p@ss:word"})
	require.NoError(t, err)
	return session
}

func TestBuildRequest(t *testing.T) {
	session := newTestSession(t)

	req, err := BuildRequest(context.Background(), session, SessionGetArgs{})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://seedbox:9091/transmission/rpc", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:p@ss:word"))
	assert.Equal(t, wantAuth, req.Header.Get("Authorization"))

	// Fresh session: no token header
	_, present := req.Header[http.CanonicalHeaderKey(SessionIDHeader)]
	assert.False(t, present)

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"session-get","arguments":{}}`, string(body))
}

func TestBuildRequestCarriesCurrentToken(t *testing.T) {
	session := newTestSession(t)

	for _, token := range []string{"abc123", "def456"} {
		session.Update(token)

		req, err := BuildRequest(context.Background(), session, TorrentActionArgs{Start: true, IDs: []int{4}})
		require.NoError(t, err)
		assert.Equal(t, token, req.Header.Get(SessionIDHeader))

		var env map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&env))
		assert.Equal(t, "torrent-start", env["method"])
	}
}

func TestBuildRequestWithoutSession(t *testing.T) {
	_, err := BuildRequest(context.Background(), nil, SessionGetArgs{})
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestBuildRequestIsReplayable(t *testing.T) {
	req, err := BuildRequest(context.Background(), newTestSession(t), SessionGetArgs{})
	require.NoError(t, err)
	require.NotNil(t, req.GetBody)

	first, err := io.ReadAll(req.Body)
	require.NoError(t, err)

	body, err := req.GetBody()
	require.NoError(t, err)
	second, err := io.ReadAll(body)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
