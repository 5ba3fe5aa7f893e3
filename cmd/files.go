package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	wantFiles string
	skipFiles string
)

// filesCmd represents the files command
var filesCmd = &cobra.Command{
	Use:   "files <id>",
	Short: "List the files of a transfer",
	Args:  cobra.ExactArgs(1),
	RunE:  runFiles,
}

// filesSelectCmd represents the files select command
var filesSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Choose which files of a transfer are downloaded",
	Long: `Choose which files of a transfer are downloaded, by the indices shown
by "missionctl files <id>".

  --want 0,2   download only files 0 and 2
  --skip 1     do not download file 1`,
	Args: cobra.ExactArgs(1),
	RunE: runFilesSelect,
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesSelectCmd)

	filesSelectCmd.Flags().StringVar(&wantFiles, "want", "", "comma-separated file indices to keep")
	filesSelectCmd.Flags().StringVar(&skipFiles, "skip", "", "comma-separated file indices to skip")
	filesSelectCmd.MarkFlagsMutuallyExclusive("want", "skip")
	filesSelectCmd.MarkFlagsOneRequired("want", "skip")
}

// parseIndexList parses "0,2, 5" into file indices
func parseIndexList(s string) ([]int, error) {
	var indices []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid file index %q", part)
		}
		indices = append(indices, i)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("no file indices given")
	}
	return indices, nil
}

func runFiles(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	client, _, err := connect()
	if err != nil {
		return err
	}

	files, err := client.TorrentFiles(cmd.Context(), ids[0])
	if err != nil {
		return rpcFailure(fmt.Sprintf("failed to list files of torrent %d", ids[0]), err)
	}

	fmt.Print(out.Files(files))
	return nil
}

func runFilesSelect(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	id := ids[0]

	client, _, err := connect()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if skipFiles != "" {
		skip, err := parseIndexList(skipFiles)
		if err != nil {
			return err
		}
		if err := client.SetUnwantedFiles(ctx, id, skip); err != nil {
			return rpcFailure(fmt.Sprintf("failed to update files of torrent %d", id), err)
		}
		fmt.Print(out.Success(fmt.Sprintf("Skipping %d file(s) of torrent %d", len(skip), id)))
		return nil
	}

	want, err := parseIndexList(wantFiles)
	if err != nil {
		return err
	}

	files, err := client.TorrentFiles(ctx, id)
	if err != nil {
		return rpcFailure(fmt.Sprintf("failed to list files of torrent %d", id), err)
	}

	if err := client.SetWantedFiles(ctx, id, want, len(files)); err != nil {
		return rpcFailure(fmt.Sprintf("failed to update files of torrent %d", id), err)
	}
	fmt.Print(out.Success(fmt.Sprintf("Downloading %d of %d file(s) of torrent %d", len(want), len(files), id)))
	return nil
}
