package transmission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// ListTorrents returns every transfer known to the daemon
func (c *Client) ListTorrents(ctx context.Context) ([]Torrent, error) {
	rpc := TorrentGetArgs{Fields: torrentFields}

	body, err := c.call(ctx, rpc)
	if err != nil {
		return nil, err
	}

	torrents, err := decodeTorrents(body)
	if err != nil {
		return nil, decodeError(rpc.Method(), body, err)
	}

	c.logger.Debug().Msgf("Retrieved %d torrents", len(torrents))
	return torrents, nil
}

// AddTorrent adds a transfer from a magnet link or .torrent content.
// A duplicate transfer is reported as a rejection carrying the existing transfer.
func (c *Client) AddTorrent(ctx context.Context, req AddRequest) (*AddedTorrent, error) {
	rpc, err := NewTorrentAddArgs(req)
	if err != nil {
		return nil, &Error{Outcome: OutcomeFailed, Method: MethodTorrentAdd, Err: err}
	}

	body, err := c.call(ctx, rpc)
	if err != nil {
		return nil, err
	}

	added, err := decodeTorrentAdded(body)
	if err != nil {
		return nil, decodeError(rpc.Method(), body, err)
	}

	if added.Duplicate {
		return added, &Error{
			Outcome: OutcomeRejected,
			Method:  rpc.Method(),
			Body:    fmt.Sprintf("duplicate torrent %q (id %d)", added.Name, added.ID),
			Err:     fmt.Errorf("%w: duplicate torrent", ErrRejected),
		}
	}

	c.logger.Info().Int("id", added.ID).Str("name", added.Name).Msg("Added torrent")
	return added, nil
}

// AddMagnet adds a transfer from a magnet link into downloadDir
func (c *Client) AddMagnet(ctx context.Context, magnet, downloadDir string) (*AddedTorrent, error) {
	return c.AddTorrent(ctx, AddRequest{Magnet: magnet, DownloadDir: downloadDir})
}

// AddMetainfo adds a transfer from raw .torrent file content into downloadDir
func (c *Client) AddMetainfo(ctx context.Context, metainfo []byte, downloadDir string) (*AddedTorrent, error) {
	return c.AddTorrent(ctx, AddRequest{Metainfo: metainfo, DownloadDir: downloadDir})
}

// RemoveTorrent removes a transfer, erasing its downloaded data when deleteLocalData is set
func (c *Client) RemoveTorrent(ctx context.Context, id int, deleteLocalData bool) error {
	err := c.exec(ctx, TorrentRemoveArgs{IDs: []int{id}, DeleteLocalData: deleteLocalData})
	if err != nil {
		return err
	}

	c.logger.Info().Int("id", id).Bool("delete_local_data", deleteLocalData).Msg("Removed torrent")
	return nil
}

// StartTorrent resumes one transfer
func (c *Client) StartTorrent(ctx context.Context, id int) error {
	return c.exec(ctx, TorrentActionArgs{Start: true, IDs: []int{id}})
}

// StopTorrent pauses one transfer
func (c *Client) StopTorrent(ctx context.Context, id int) error {
	return c.exec(ctx, TorrentActionArgs{Start: false, IDs: []int{id}})
}

// TogglePause starts a stopped transfer and stops any other
func (c *Client) TogglePause(ctx context.Context, t Torrent) error {
	if t.IsStopped() {
		return c.StartTorrent(ctx, t.ID)
	}
	return c.StopTorrent(ctx, t.ID)
}

// StartAll resumes every transfer
func (c *Client) StartAll(ctx context.Context) error {
	return c.exec(ctx, TorrentActionArgs{Start: true})
}

// StopAll pauses every transfer
func (c *Client) StopAll(ctx context.Context) error {
	return c.exec(ctx, TorrentActionArgs{Start: false})
}

// SetPriority sets the bandwidth priority of every file in a transfer
func (c *Client) SetPriority(ctx context.Context, id int, priority Priority) error {
	if _, err := ParsePriority(string(priority)); err != nil {
		return &Error{Outcome: OutcomeFailed, Method: MethodTorrentSet, Err: err}
	}
	return c.exec(ctx, TorrentSetArgs{IDs: []int{id}, Priority: priority})
}

// SetUnwantedFiles marks the given file indices of a transfer as not wanted
func (c *Client) SetUnwantedFiles(ctx context.Context, id int, indices []int) error {
	if indices == nil {
		indices = []int{}
	}
	return c.exec(ctx, TorrentSetArgs{IDs: []int{id}, FilesUnwanted: indices})
}

// SetWantedFiles downloads exactly the wanted indices out of total files.
// The wanted set is sent explicitly so previously skipped files are re-enabled,
// and every other index is sent as unwanted.
func (c *Client) SetWantedFiles(ctx context.Context, id int, wanted []int, total int) error {
	unwanted, err := UnwantedIndices(wanted, total)
	if err != nil {
		return &Error{Outcome: OutcomeFailed, Method: MethodTorrentSet, Err: err}
	}

	set := TorrentSetArgs{IDs: []int{id}, FilesUnwanted: unwanted}
	if len(wanted) > 0 {
		set.FilesWanted = dedupe(wanted)
		slices.Sort(set.FilesWanted)
	}
	return c.exec(ctx, set)
}

func dedupe(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

// UnwantedIndices returns the complement of wanted within [0, total)
func UnwantedIndices(wanted []int, total int) ([]int, error) {
	keep := make(map[int]bool, len(wanted))
	for _, i := range wanted {
		if i < 0 || i >= total {
			return nil, fmt.Errorf("file index %d out of range [0, %d)", i, total)
		}
		keep[i] = true
	}

	unwanted := make([]int, 0, total-len(keep))
	for i := 0; i < total; i++ {
		if !keep[i] {
			unwanted = append(unwanted, i)
		}
	}
	return unwanted, nil
}

// TorrentFiles returns the files of one transfer
func (c *Client) TorrentFiles(ctx context.Context, id int) ([]TransferFile, error) {
	rpc := TorrentGetArgs{Fields: []string{"files", "fileStats"}, IDs: []int{id}}

	body, err := c.call(ctx, rpc)
	if err != nil {
		return nil, err
	}

	files, err := decodeFiles(body)
	if err != nil {
		if errors.Is(err, ErrTorrentNotFound) {
			return nil, &Error{
				Outcome:    OutcomeFailed,
				Method:     rpc.Method(),
				StatusCode: http.StatusOK,
				Body:       fmt.Sprintf("no torrent with id %d", id),
				Err:        err,
			}
		}
		return nil, decodeError(rpc.Method(), body, err)
	}
	return files, nil
}

// DefaultDownloadDir returns the daemon's default save directory
func (c *Client) DefaultDownloadDir(ctx context.Context) (string, error) {
	rpc := SessionGetArgs{}

	body, err := c.call(ctx, rpc)
	if err != nil {
		return "", err
	}

	dir, err := decodeDownloadDir(body)
	if err != nil {
		return "", decodeError(rpc.Method(), body, err)
	}
	return dir, nil
}

// exec runs a mutating call whose only result is success or failure
func (c *Client) exec(ctx context.Context, rpc Call) error {
	body, err := c.call(ctx, rpc)
	if err != nil {
		return err
	}
	if err := decodeResult(body); err != nil {
		return decodeError(rpc.Method(), body, err)
	}
	return nil
}
