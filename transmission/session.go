package transmission

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

const (
	// RPCPath is the fixed path of the daemon's RPC endpoint
	RPCPath = "/transmission/rpc"

	// SessionIDHeader carries the anti-CSRF session token in both directions
	SessionIDHeader = "X-Transmission-Session-Id"

	// DefaultPort is the daemon's default RPC port
	DefaultPort = 9091
)

// Endpoint is the address of one daemon
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// NewEndpoint builds an Endpoint, choosing https when useTLS is set
func NewEndpoint(host string, port int, useTLS bool) Endpoint {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	return Endpoint{
		Scheme: scheme,
		Host:   strings.TrimSpace(host),
		Port:   port,
	}
}

// URL returns the full RPC URL
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s://%s%s", e.Scheme, net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), RPCPath)
}

func (e Endpoint) validate() error {
	if e.Host == "" {
		return fmt.Errorf("%w: host is empty", ErrMissingEndpoint)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrMissingEndpoint, e.Port)
	}
	if e.Scheme != "http" && e.Scheme != "https" {
		return fmt.Errorf("%w: invalid scheme %q", ErrMissingEndpoint, e.Scheme)
	}
	return nil
}

// Credentials are used to compute the Basic-Auth header of every request
type Credentials struct {
	Username string
	Password string
}

// Host is the externally supplied description of a configured server.
// The password is not part of it; it comes from a secret store.
type Host struct {
	Name     string
	Server   string
	Port     int
	TLS      bool
	Username string
}

// Endpoint returns the RPC endpoint for the host
func (h Host) Endpoint() Endpoint {
	port := h.Port
	if port == 0 {
		port = DefaultPort
	}
	return NewEndpoint(h.Server, port, h.TLS)
}

// Session holds the endpoint, credentials and last session token for one server.
// Each configured server owns its own Session.
type Session struct {
	endpoint    Endpoint
	credentials Credentials

	mu    sync.RWMutex
	token string
}

// NewSession creates a session with no token. It fails fast when the endpoint
// or credentials are missing.
func NewSession(endpoint Endpoint, credentials Credentials) (*Session, error) {
	if err := endpoint.validate(); err != nil {
		return nil, err
	}
	if credentials.Username == "" {
		return nil, ErrMissingCredentials
	}

	return &Session{
		endpoint:    endpoint,
		credentials: credentials,
	}, nil
}

// Endpoint returns the session's endpoint
func (s *Session) Endpoint() Endpoint {
	return s.endpoint
}

// Credentials returns the session's credentials
func (s *Session) Credentials() Credentials {
	return s.credentials
}

// Token returns the current session token, empty before the first refresh
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Update replaces the stored token unconditionally. Last write wins.
func (s *Session) Update(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}
