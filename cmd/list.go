package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s0up4200/missionctl/config"
	"github.com/s0up4200/missionctl/filter"
	"github.com/s0up4200/missionctl/poller"
)

var (
	filterExpr string
	preset     string
	allHosts   bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transfers, optionally filtered",
	Long: `List the transfers of the selected host.

Filters are expr expressions over the fields ID, Name, TotalSize, PercentDone,
Status, StatusCode, PeersSendingToUs, PeersConnected, Done, Stopped,
DownloadDir, RateDownload, RateUpload, HasError and ErrorString, e.g.

  missionctl list -f 'Status == "seeding" and TotalSize > gib(4)'
  missionctl list -f 'icontains(Name, "ubuntu")'
  missionctl list -p stalled`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the transfer list, refreshing periodically",
	Long: `Refresh the transfer list every poll.interval until interrupted.
Unreachable hosts are retried up to poll.max_attempts times per refresh.
Filter presets are reloaded when the config file changes.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)

	for _, c := range []*cobra.Command{listCmd, watchCmd} {
		c.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
		c.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	}
	watchCmd.Flags().BoolVar(&allHosts, "all-hosts", false, "watch every configured host")
}

// resolveFilter picks the filter: --filter, then --preset, then the configured default
func resolveFilter() (filter.CompiledFilter, error) {
	expression := filterExpr
	if expression == "" && preset == "" {
		expression = cfg.Filter.DefaultExpression
	}

	f, err := filters.Resolve(expression, preset)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return f, nil
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := resolveFilter()
	if err != nil {
		return err
	}

	client, h, err := connect()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	torrents, err := client.ListTorrents(ctx)
	if err != nil {
		return rpcFailure("failed to list torrents on "+h.Name, err)
	}

	matches, err := filters.Apply(ctx, f, torrents)
	if err != nil {
		return err
	}

	if f != nil {
		logger.Debug().Str("filter", f.Expression()).Int("matched", len(matches)).Int("total", len(torrents)).Msg("Filter applied")
	}

	fmt.Print(out.TorrentList(matches))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	if _, err := resolveFilter(); err != nil {
		return err
	}

	hosts, err := watchedHosts()
	if err != nil {
		return err
	}

	pollers := make([]*poller.Poller, 0, len(hosts))
	for _, h := range hosts {
		client, err := newClient(h, len(hosts) == 1)
		if err != nil {
			return err
		}
		pollers = append(pollers, poller.New(h.Name, client, logger,
			poller.WithInterval(cfg.Poll.Interval),
			poller.WithMaxAttempts(cfg.Poll.MaxAttempts),
			poller.WithRetryDelay(cfg.Poll.RetryDelay),
		))
	}

	// Presets may change while watching
	var filterMu sync.Mutex
	loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("Ignoring invalid config change")
			return
		}
		if err := filters.Replace(next.Filter.Presets); err != nil {
			logger.Warn().Err(err).Msg("Ignoring invalid filter presets")
			return
		}
		filterMu.Lock()
		cfg.Filter = next.Filter
		filterMu.Unlock()
		logger.Info().Strs("presets", filters.Names()).Msg("Filter presets reloaded")
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := make(chan poller.Update)
	errc := make(chan error, 1)
	go func() {
		errc <- poller.RunAll(ctx, pollers, updates)
	}()

	for {
		select {
		case <-ctx.Done():
			<-errc
			return nil
		case u := <-updates:
			filterMu.Lock()
			f, err := resolveFilter()
			filterMu.Unlock()
			if err != nil {
				logger.Warn().Err(err).Msg("Filter no longer valid, showing all torrents")
			}
			renderUpdate(ctx, u, f)
		}
	}
}

func renderUpdate(ctx context.Context, u poller.Update, f filter.CompiledFilter) {
	fmt.Print(out.Refresh(u.Host, u.At))
	if !u.OK() {
		fmt.Print(out.Failure(u.Diagnostic()))
		return
	}

	matches, err := filters.Apply(ctx, f, u.Torrents)
	if err != nil {
		logger.Warn().Err(err).Str("host", u.Host).Msg("Failed to apply filter")
		return
	}
	fmt.Println(out.TorrentList(matches))
}

// watchedHosts returns every host with --all-hosts, otherwise the selected one
func watchedHosts() ([]config.HostConfig, error) {
	if allHosts {
		return cfg.Hosts, nil
	}
	h, err := selectedHost()
	if err != nil {
		return nil, err
	}
	return []config.HostConfig{h}, nil
}
