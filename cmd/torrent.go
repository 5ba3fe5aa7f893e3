package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/missionctl/transmission"
)

var (
	downloadDir string
	deleteData  bool
	assumeYes   bool
	allTorrents bool
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <magnet|url|file.torrent>",
	Short: "Add a transfer from a magnet link, URL or .torrent file",
	Long: `Add a transfer. Without --download-dir the daemon's default download
directory is looked up first and used.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Remove transfers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start [<id>...]",
	Short: "Start transfers, or every transfer with --all",
	RunE:  runStartStop(true),
}

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop [<id>...]",
	Short: "Stop transfers, or every transfer with --all",
	RunE:  runStartStop(false),
}

// toggleCmd represents the toggle command
var toggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Start a stopped transfer or stop a running one",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

// priorityCmd represents the priority command
var priorityCmd = &cobra.Command{
	Use:       "priority <id> <high|normal|low>",
	Short:     "Set the bandwidth priority of every file in a transfer",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"high", "normal", "low"},
	RunE:      runPriority,
}

func init() {
	rootCmd.AddCommand(addCmd, removeCmd, startCmd, stopCmd, toggleCmd, priorityCmd)

	addCmd.Flags().StringVar(&downloadDir, "download-dir", "", "save directory on the server")

	removeCmd.Flags().BoolVar(&deleteData, "delete-data", false, "also delete downloaded data")
	removeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	startCmd.Flags().BoolVar(&allTorrents, "all", false, "start every transfer")
	stopCmd.Flags().BoolVar(&allTorrents, "all", false, "stop every transfer")
}

// parseIDs converts transfer id arguments
func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid torrent id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// addRequestFor builds the request for a magnet link, URL or local .torrent file
func addRequestFor(source, dir string) (transmission.AddRequest, error) {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "magnet:") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return transmission.AddRequest{Magnet: source, DownloadDir: dir}, nil
	}

	metainfo, err := os.ReadFile(source)
	if err != nil {
		return transmission.AddRequest{}, fmt.Errorf("failed to read torrent file: %w", err)
	}
	if len(metainfo) == 0 {
		return transmission.AddRequest{}, fmt.Errorf("torrent file %s is empty", source)
	}
	return transmission.AddRequest{Metainfo: metainfo, DownloadDir: dir}, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	client, h, err := connect()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	dir := downloadDir
	if dir == "" {
		dir, err = client.DefaultDownloadDir(ctx)
		if err != nil {
			return rpcFailure("failed to read default download directory", err)
		}
	}

	req, err := addRequestFor(args[0], dir)
	if err != nil {
		return err
	}

	added, err := client.AddTorrent(ctx, req)
	if err != nil {
		if added != nil && added.Duplicate {
			fmt.Print(out.Failure(fmt.Sprintf("Already on %s as [%d] %s", h.Name, added.ID, added.Name)))
		}
		return rpcFailure("failed to add torrent", err)
	}

	fmt.Print(out.Success(fmt.Sprintf("Added [%d] %s to %s", added.ID, added.Name, dir)))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	if deleteData && !assumeYes {
		if !confirm(fmt.Sprintf("Remove %d torrent(s) and delete their data?", len(ids))) {
			logger.Info().Msg("Removal cancelled")
			return nil
		}
	}

	client, _, err := connect()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := client.RemoveTorrent(cmd.Context(), id, deleteData); err != nil {
			return rpcFailure(fmt.Sprintf("failed to remove torrent %d", id), err)
		}
		fmt.Print(out.Success(fmt.Sprintf("Removed torrent %d", id)))
	}
	return nil
}

func runStartStop(start bool) func(cmd *cobra.Command, args []string) error {
	verb := "stop"
	if start {
		verb = "start"
	}

	return func(cmd *cobra.Command, args []string) error {
		if allTorrents == (len(args) > 0) {
			return fmt.Errorf("pass torrent ids or --all")
		}

		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		client, _, err := connect()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if allTorrents {
			if start {
				err = client.StartAll(ctx)
			} else {
				err = client.StopAll(ctx)
			}
			if err != nil {
				return rpcFailure("failed to "+verb+" all torrents", err)
			}
			fmt.Print(out.Success("Requested " + verb + " of all torrents"))
			return nil
		}

		for _, id := range ids {
			if start {
				err = client.StartTorrent(ctx, id)
			} else {
				err = client.StopTorrent(ctx, id)
			}
			if err != nil {
				return rpcFailure(fmt.Sprintf("failed to %s torrent %d", verb, id), err)
			}
			fmt.Print(out.Success(fmt.Sprintf("Requested %s of torrent %d", verb, id)))
		}
		return nil
	}
}

func runToggle(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	client, _, err := connect()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	torrents, err := client.ListTorrents(ctx)
	if err != nil {
		return rpcFailure("failed to list torrents", err)
	}

	for _, t := range torrents {
		if t.ID != ids[0] {
			continue
		}
		if err := client.TogglePause(ctx, t); err != nil {
			return rpcFailure(fmt.Sprintf("failed to toggle torrent %d", t.ID), err)
		}
		action := "Stopped"
		if t.IsStopped() {
			action = "Started"
		}
		fmt.Print(out.Success(fmt.Sprintf("%s [%d] %s", action, t.ID, t.Name)))
		return nil
	}

	return fmt.Errorf("%w: %d", transmission.ErrTorrentNotFound, ids[0])
}

func runPriority(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[:1])
	if err != nil {
		return err
	}
	priority, err := transmission.ParsePriority(strings.ToLower(args[1]))
	if err != nil {
		return err
	}

	client, _, err := connect()
	if err != nil {
		return err
	}

	if err := client.SetPriority(cmd.Context(), ids[0], priority); err != nil {
		return rpcFailure(fmt.Sprintf("failed to set priority of torrent %d", ids[0]), err)
	}

	fmt.Print(out.Success(fmt.Sprintf("Set torrent %d to %s", ids[0], strings.TrimPrefix(string(priority), "priority-"))))
	return nil
}
