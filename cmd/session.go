package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/missionctl/config"
	"github.com/s0up4200/missionctl/poller"
)

// hostCheckConcurrency bounds how many hosts are contacted at once
const hostCheckConcurrency = 8

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the selected host's endpoint and default download directory",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

// hostsCmd represents the hosts command
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Test the connection to every configured host",
	Args:  cobra.NoArgs,
	RunE:  runHosts,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("missionctl %s (built %s)\n", appVersion, appBuildTime)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd, hostsCmd, versionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	client, h, err := connect()
	if err != nil {
		return err
	}

	dir, err := client.DefaultDownloadDir(cmd.Context())
	if err != nil {
		return rpcFailure("failed to read session on "+h.Name, err)
	}

	fmt.Printf("Host:         %s\n", h.Name)
	fmt.Printf("Endpoint:     %s\n", client.Session().Endpoint().URL())
	fmt.Printf("User:         %s\n", h.Username)
	fmt.Printf("Download dir: %s\n", dir)
	return nil
}

// hostCheck is the outcome of contacting one host
type hostCheck struct {
	host   config.HostConfig
	update poller.Update
	err    error
}

func runHosts(cmd *cobra.Command, args []string) error {
	results := make([]hostCheck, len(cfg.Hosts))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(hostCheckConcurrency)

	for i, h := range cfg.Hosts {
		g.Go(func() error {
			results[i] = checkHost(ctx, h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		label := fmt.Sprintf("%-16s %s", r.host.Name, r.host.Host().Endpoint().URL())
		switch {
		case r.err != nil:
			failed++
			fmt.Print(out.Failure(fmt.Sprintf("%s  %v", label, r.err)))
		case !r.update.OK():
			failed++
			fmt.Print(out.Failure(fmt.Sprintf("%s  %s", label, r.update.Diagnostic())))
		default:
			fmt.Print(out.Success(fmt.Sprintf("%s  %d torrent(s)", label, len(r.update.Torrents))))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d host(s) unreachable", failed, len(results))
	}
	return nil
}

// checkHost lists one host's transfers with the watch retry policy
func checkHost(ctx context.Context, h config.HostConfig) hostCheck {
	client, err := newClient(h, false)
	if err != nil {
		return hostCheck{host: h, err: err}
	}

	p := poller.New(h.Name, client, logger,
		poller.WithMaxAttempts(cfg.Poll.MaxAttempts),
		poller.WithRetryDelay(cfg.Poll.RetryDelay),
	)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Poll.MaxAttempts)*(cfg.RPC.Timeout+cfg.Poll.RetryDelay))
	defer cancel()

	return hostCheck{host: h, update: p.Poll(ctx)}
}
