package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
hosts:
  - name: seedbox
    server: 10.0.0.5
    username: admin
    password_env: SEEDBOX_PASSWORD
  - name: nas
    server: nas.local
    port: 443
    tls: true
    username: transmission
    password: hunter2
    default: true

poll:
  interval: 10s

filter:
  default_expression: 'not Done'
  presets:
    seeding: 'Status == "seeding"'
    large: 'TotalSize > gib(10)'

logging:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		Hosts: []HostConfig{{Name: "seedbox", Server: "localhost", Port: 9091, Username: "admin"}},
		RPC:   RPCConfig{Timeout: 30 * time.Second, StaleSessionRetries: 1},
		Poll:  PollConfig{Interval: 5 * time.Second, MaxAttempts: 3, RetryDelay: time.Second},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, "seedbox", cfg.Hosts[0].Name)
	assert.Equal(t, 9091, cfg.Hosts[0].Port, "port defaults to 9091")
	assert.Equal(t, "SEEDBOX_PASSWORD", cfg.Hosts[0].PasswordEnv)
	assert.True(t, cfg.Hosts[1].TLS)
	assert.True(t, cfg.Hosts[1].Default)

	// Defaults
	assert.Equal(t, 30*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 1, cfg.RPC.StaleSessionRetries)
	assert.Equal(t, 3, cfg.Poll.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Poll.RetryDelay)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Logging.Color)

	// Overrides
	assert.Equal(t, 10*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "not Done", cfg.Filter.DefaultExpression)
	assert.Len(t, cfg.Filter.Presets, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadNameDefaultsToServer(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
hosts:
  - server: box.lan
    username: admin
`))
	require.NoError(t, err)
	assert.Equal(t, "box.lan", cfg.Hosts[0].Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no hosts", mutate: func(c *Config) { c.Hosts = nil }, wantErr: "at least one entry in hosts"},
		{name: "missing server", mutate: func(c *Config) { c.Hosts[0].Server = "" }, wantErr: "hosts[0].server is required"},
		{name: "missing username", mutate: func(c *Config) { c.Hosts[0].Username = "" }, wantErr: "hosts[0].username is required"},
		{name: "bad port", mutate: func(c *Config) { c.Hosts[0].Port = 70000 }, wantErr: "hosts[0].port"},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Hosts = append(c.Hosts, HostConfig{Name: "SEEDBOX", Server: "other", Port: 9091, Username: "x"})
			},
			wantErr: "duplicate host name",
		},
		{
			name: "two defaults",
			mutate: func(c *Config) {
				c.Hosts[0].Default = true
				c.Hosts = append(c.Hosts, HostConfig{Name: "b", Server: "b", Port: 9091, Username: "x", Default: true})
			},
			wantErr: "only one host may be marked default",
		},
		{name: "zero retries", mutate: func(c *Config) { c.RPC.StaleSessionRetries = 0 }, wantErr: "rpc.stale_session_retries"},
		{name: "zero timeout", mutate: func(c *Config) { c.RPC.Timeout = 0 }, wantErr: "rpc.timeout"},
		{name: "zero interval", mutate: func(c *Config) { c.Poll.Interval = 0 }, wantErr: "poll.interval"},
		{name: "zero attempts", mutate: func(c *Config) { c.Poll.MaxAttempts = 0 }, wantErr: "poll.max_attempts"},
		{
			name:    "empty preset",
			mutate:  func(c *Config) { c.Filter.Presets = map[string]string{"blank": " "} },
			wantErr: "filter.presets.blank is empty",
		},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid logging level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSelectHost(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	h, err := cfg.SelectHost("")
	require.NoError(t, err)
	assert.Equal(t, "nas", h.Name)

	h, err = cfg.SelectHost("SeedBox")
	require.NoError(t, err)
	assert.Equal(t, "seedbox", h.Name)
	assert.Equal(t, "10.0.0.5", h.Host().Server)

	_, err = cfg.SelectHost("missing")
	assert.ErrorIs(t, err, ErrHostNotFound)

	cfg.Hosts[1].Default = false
	_, err = cfg.SelectHost("")
	assert.ErrorIs(t, err, ErrAmbiguousHost)

	cfg.Hosts = cfg.Hosts[:1]
	h, err = cfg.SelectHost("")
	require.NoError(t, err)
	assert.Equal(t, "seedbox", h.Name)
}

func TestResolvePassword(t *testing.T) {
	env := map[string]string{}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	h := HostConfig{Name: "seedbox", PasswordEnv: "SEEDBOX_PASSWORD", Password: "from-file"}

	pw, ok := h.ResolvePassword(lookup)
	assert.True(t, ok)
	assert.Equal(t, "from-file", pw)

	env[PasswordEnv] = "from-global"
	pw, _ = h.ResolvePassword(lookup)
	assert.Equal(t, "from-global", pw)

	env["SEEDBOX_PASSWORD"] = "from-host-env"
	pw, _ = h.ResolvePassword(lookup)
	assert.Equal(t, "from-host-env", pw)

	_, ok = HostConfig{Name: "bare"}.ResolvePassword(func(string) (string, bool) { return "", false })
	assert.False(t, ok)
}

func TestLoaderWatch(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, path, loader.ConfigFile())

	changes := make(chan *Config, 4)
	loader.Watch(func(cfg *Config, err error) {
		if err == nil {
			changes <- cfg
		}
	})

	updated := `
hosts:
  - name: seedbox
    server: 10.0.0.5
    username: admin
filter:
  presets:
    stopped: 'Stopped'
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case cfg := <-changes:
		assert.Contains(t, cfg.Filter.Presets, "stopped")
		assert.Len(t, cfg.Hosts, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no config change observed")
	}
}
