package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PasswordEnv is consulted for a host password when the host names no variable of its own
const PasswordEnv = "MISSIONCTL_PASSWORD"

var (
	// ErrHostNotFound indicates no configured host has the requested name
	ErrHostNotFound = errors.New("host not found")

	// ErrAmbiguousHost indicates several hosts are configured and none is the default
	ErrAmbiguousHost = errors.New("several hosts configured and none marked default")
)

// Loader reads the configuration and can follow changes to the file
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader. An empty path searches the standard locations.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".missionctl"))
		}
		v.AddConfigPath("/etc/missionctl/")
	}

	return &Loader{v: v, path: configPath}
}

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads and validates the configuration
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return l.decode()
}

// ConfigFile returns the path of the file in use
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the re-validated configuration whenever the file
// is written. An invalid file is reported through err; callers keep their
// previous configuration in that case.
func (l *Loader) Watch(onChange func(cfg *Config, err error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.decode())
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyHostDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// RPC defaults
	v.SetDefault("rpc.timeout", "30s")
	v.SetDefault("rpc.stale_session_retries", 1)

	// Poll defaults
	v.SetDefault("poll.interval", "5s")
	v.SetDefault("poll.max_attempts", 3)
	v.SetDefault("poll.retry_delay", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// applyHostDefaults fills per-host values viper cannot default inside a list
func applyHostDefaults(cfg *Config) {
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		h.Name = strings.TrimSpace(h.Name)
		h.Server = strings.TrimSpace(h.Server)
		if h.Name == "" {
			h.Name = h.Server
		}
		if h.Port == 0 {
			h.Port = 9091
		}
	}
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if len(cfg.Hosts) == 0 {
		return fmt.Errorf("at least one entry in hosts is required")
	}

	seen := make(map[string]bool, len(cfg.Hosts))
	defaults := 0
	for i, h := range cfg.Hosts {
		if h.Server == "" {
			return fmt.Errorf("hosts[%d].server is required", i)
		}
		if h.Username == "" {
			return fmt.Errorf("hosts[%d].username is required", i)
		}
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("hosts[%d].port must be between 1 and 65535", i)
		}
		key := strings.ToLower(h.Name)
		if seen[key] {
			return fmt.Errorf("duplicate host name: %s", h.Name)
		}
		seen[key] = true
		if h.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("only one host may be marked default")
	}

	if cfg.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if cfg.RPC.StaleSessionRetries < 1 {
		return fmt.Errorf("rpc.stale_session_retries must be at least 1")
	}

	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if cfg.Poll.MaxAttempts < 1 {
		return fmt.Errorf("poll.max_attempts must be at least 1")
	}
	if cfg.Poll.RetryDelay < 0 {
		return fmt.Errorf("poll.retry_delay must not be negative")
	}

	for name, expression := range cfg.Filter.Presets {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter.presets.%s is empty", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// SelectHost returns the host named name, or the default host when name is
// empty. A single configured host is the default implicitly.
func (c *Config) SelectHost(name string) (HostConfig, error) {
	if name != "" {
		for _, h := range c.Hosts {
			if strings.EqualFold(h.Name, name) {
				return h, nil
			}
		}
		return HostConfig{}, fmt.Errorf("%w: %s", ErrHostNotFound, name)
	}

	for _, h := range c.Hosts {
		if h.Default {
			return h, nil
		}
	}
	if len(c.Hosts) == 1 {
		return c.Hosts[0], nil
	}
	return HostConfig{}, ErrAmbiguousHost
}

// ResolvePassword looks the password up in the host's own variable, then
// MISSIONCTL_PASSWORD, then the config file. ok is false when none is set.
func (h HostConfig) ResolvePassword(lookupEnv func(string) (string, bool)) (password string, ok bool) {
	if h.PasswordEnv != "" {
		if v, found := lookupEnv(h.PasswordEnv); found && v != "" {
			return v, true
		}
	}
	if v, found := lookupEnv(PasswordEnv); found && v != "" {
		return v, true
	}
	if h.Password != "" {
		return h.Password, true
	}
	return "", false
}
