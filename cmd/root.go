package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/missionctl/config"
	"github.com/s0up4200/missionctl/filter"
	"github.com/s0up4200/missionctl/transmission"
)

var (
	cfgFile  string
	hostName string
	cfg      *config.Config
	loader   *config.Loader
	logger   zerolog.Logger
	filters  *filter.Manager
	out      *Formatter

	appVersion   = "dev"
	appBuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "missionctl",
	Short: "A command-line remote for Transmission",
	Long: `missionctl talks to one or more Transmission daemons over their RPC
interface. It lists, adds, removes, starts and stops transfers, changes
priorities and file selections, and can follow the transfer list live.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// SetVersion records build information for the version command
func SetVersion(version, buildTime string) {
	appVersion = version
	appBuildTime = buildTime
	rootCmd.Version = version
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&hostName, "host", "", "configured host to talk to (default is the host marked default)")
}

// initializeApp loads the configuration, logger and filter presets
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	loader = config.NewLoader(cfgFile)

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)
	out = NewFormatter(colorEnabled(cfg.Logging, os.Stdout))

	filters = filter.NewManager()
	if err := filters.Replace(cfg.Filter.Presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	logger.Debug().Str("config", loader.ConfigFile()).Int("hosts", len(cfg.Hosts)).Msg("Configuration loaded")
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !colorEnabled(cfg, os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// colorEnabled reports whether colored output should be written to f
func colorEnabled(cfg config.LoggingConfig, f *os.File) bool {
	if !cfg.Color {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// selectedHost returns the host chosen with --host, or the default host
func selectedHost() (config.HostConfig, error) {
	h, err := cfg.SelectHost(hostName)
	if errors.Is(err, config.ErrAmbiguousHost) {
		names := make([]string, 0, len(cfg.Hosts))
		for _, h := range cfg.Hosts {
			names = append(names, h.Name)
		}
		return h, fmt.Errorf("%w; pass --host (one of: %s)", err, strings.Join(names, ", "))
	}
	return h, err
}

// newClient builds a client for h. The password is prompted for only when
// interactive is set and no other source provides one.
func newClient(h config.HostConfig, interactive bool) (*transmission.Client, error) {
	password, ok := h.ResolvePassword(os.LookupEnv)
	if !ok {
		if !interactive {
			return nil, fmt.Errorf("no password configured for host %s", h.Name)
		}
		var err error
		password, err = promptPassword(h)
		if err != nil {
			return nil, err
		}
	}

	return transmission.NewHostClient(h.Host(), password, logger,
		transmission.WithTimeout(cfg.RPC.Timeout),
		transmission.WithStaleSessionRetries(cfg.RPC.StaleSessionRetries),
	)
}

// connect builds a client for the selected host
func connect() (*transmission.Client, config.HostConfig, error) {
	h, err := selectedHost()
	if err != nil {
		return nil, h, err
	}

	client, err := newClient(h, true)
	if err != nil {
		return nil, h, err
	}
	return client, h, nil
}

// rpcFailure turns a client error into a user-facing command error
func rpcFailure(action string, err error) error {
	return fmt.Errorf("%s: %s", action, transmission.Diagnostic(err))
}
