package config

import (
	"time"

	"github.com/s0up4200/missionctl/transmission"
)

// Config represents the complete configuration structure
type Config struct {
	Hosts   []HostConfig  `mapstructure:"hosts"`
	RPC     RPCConfig     `mapstructure:"rpc"`
	Poll    PollConfig    `mapstructure:"poll"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HostConfig describes one Transmission daemon
type HostConfig struct {
	Name        string `mapstructure:"name"`
	Server      string `mapstructure:"server"`
	Port        int    `mapstructure:"port"`
	TLS         bool   `mapstructure:"tls"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	PasswordEnv string `mapstructure:"password_env"`
	Default     bool   `mapstructure:"default"`
}

// Host returns the client-facing description of the host, without its password
func (h HostConfig) Host() transmission.Host {
	return transmission.Host{
		Name:     h.Name,
		Server:   h.Server,
		Port:     h.Port,
		TLS:      h.TLS,
		Username: h.Username,
	}
}

// RPCConfig tunes the RPC client
type RPCConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	StaleSessionRetries int           `mapstructure:"stale_session_retries"`
}

// PollConfig tunes the refresh loop of the watch command
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// FilterConfig contains the default expression and named presets
type FilterConfig struct {
	DefaultExpression string            `mapstructure:"default_expression"`
	Presets           map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
