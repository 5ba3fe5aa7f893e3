package transmission

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// RPC method names
const (
	MethodTorrentGet    = "torrent-get"
	MethodTorrentAdd    = "torrent-add"
	MethodTorrentRemove = "torrent-remove"
	MethodTorrentStart  = "torrent-start"
	MethodTorrentStop   = "torrent-stop"
	MethodTorrentSet    = "torrent-set"
	MethodSessionGet    = "session-get"
)

// torrentFields is the field list requested for ListTorrents
var torrentFields = []string{
	"id", "name", "totalSize", "percentDone", "status",
	"peersSendingToUs", "peersConnected",
	"downloadDir", "rateDownload", "rateUpload", "error", "errorString",
}

// Call is one RPC invocation: a method name and its typed arguments.
// The set of implementations is closed; each encodes its own arguments.
type Call interface {
	Method() string
	arguments() any
}

type envelope struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments"`
}

// EncodeRequest encodes a call as {"method": ..., "arguments": {...}}
func EncodeRequest(c Call) ([]byte, error) {
	args := c.arguments()
	if args == nil {
		args = struct{}{}
	}
	data, err := json.Marshal(envelope{Method: c.Method(), Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", c.Method(), err)
	}
	return data, nil
}

// TorrentGetArgs selects fields and, optionally, transfers for torrent-get
type TorrentGetArgs struct {
	Fields []string `json:"fields"`
	IDs    []int    `json:"ids,omitempty"`
}

func (TorrentGetArgs) Method() string   { return MethodTorrentGet }
func (a TorrentGetArgs) arguments() any { return a }

// TorrentAddArgs is either a magnet/URL ("filename") or base64 metainfo
type TorrentAddArgs struct {
	Filename    string `json:"filename,omitempty"`
	Metainfo    string `json:"metainfo,omitempty"`
	DownloadDir string `json:"download-dir,omitempty"`
}

func (TorrentAddArgs) Method() string   { return MethodTorrentAdd }
func (a TorrentAddArgs) arguments() any { return a }

// NewTorrentAddArgs validates an AddRequest and encodes file content as base64
func NewTorrentAddArgs(req AddRequest) (TorrentAddArgs, error) {
	hasMagnet := req.Magnet != ""
	hasFile := len(req.Metainfo) > 0
	if hasMagnet == hasFile {
		return TorrentAddArgs{}, fmt.Errorf("exactly one of magnet link or metainfo is required")
	}

	args := TorrentAddArgs{DownloadDir: req.DownloadDir}
	if hasFile {
		args.Metainfo = base64.StdEncoding.EncodeToString(req.Metainfo)
	} else {
		args.Filename = req.Magnet
	}
	return args, nil
}

// TorrentRemoveArgs removes transfers, optionally erasing their data
type TorrentRemoveArgs struct {
	IDs             []int `json:"ids"`
	DeleteLocalData bool  `json:"delete-local-data"`
}

func (TorrentRemoveArgs) Method() string   { return MethodTorrentRemove }
func (a TorrentRemoveArgs) arguments() any { return a }

// TorrentActionArgs starts or stops transfers. No ids means every transfer.
type TorrentActionArgs struct {
	Start bool
	IDs   []int
}

func (a TorrentActionArgs) Method() string {
	if a.Start {
		return MethodTorrentStart
	}
	return MethodTorrentStop
}

func (a TorrentActionArgs) arguments() any {
	if len(a.IDs) == 0 {
		return struct{}{}
	}
	return struct {
		IDs []int `json:"ids"`
	}{IDs: a.IDs}
}

// TorrentSetArgs changes per-transfer settings. The priority key is the
// priority name itself, so it is encoded by hand.
type TorrentSetArgs struct {
	IDs           []int
	Priority      Priority
	FilesWanted   []int
	FilesUnwanted []int
}

func (TorrentSetArgs) Method() string   { return MethodTorrentSet }
func (a TorrentSetArgs) arguments() any { return a }

// MarshalJSON implements json.Marshaler
func (a TorrentSetArgs) MarshalJSON() ([]byte, error) {
	m := map[string]any{"ids": a.IDs}
	if a.Priority != "" {
		// An empty file list applies the priority to every file
		m[string(a.Priority)] = []int{}
	}
	if a.FilesWanted != nil {
		m["files-wanted"] = a.FilesWanted
	}
	if a.FilesUnwanted != nil {
		m["files-unwanted"] = a.FilesUnwanted
	}
	return json.Marshal(m)
}

// SessionGetArgs requests the daemon's session settings
type SessionGetArgs struct{}

func (SessionGetArgs) Method() string { return MethodSessionGet }
func (SessionGetArgs) arguments() any { return struct{}{} }

// response is the outer shape shared by every method
type response struct {
	Result    *string                    `json:"result"`
	Arguments map[string]json.RawMessage `json:"arguments"`
}

// decodeEnvelope parses the outer envelope and checks the result field.
// A missing result is tolerated, a non-"success" result is a rejection.
func decodeEnvelope(body []byte) (*response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedResponse)
	}

	var resp response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if resp.Result != nil && *resp.Result != "success" {
		return nil, &rejection{reason: *resp.Result}
	}
	if resp.Arguments == nil {
		return nil, fmt.Errorf("%w: missing arguments", ErrMalformedResponse)
	}
	return &resp, nil
}

// rejection carries the daemon's result text
type rejection struct {
	reason string
}

func (r *rejection) Error() string { return r.reason }
func (r *rejection) Unwrap() error { return ErrRejected }

func (r *response) field(key string, v any) error {
	raw, ok := r.Arguments[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing %q", ErrMalformedResponse, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformedResponse, key, err)
	}
	return nil
}

// decodeTorrents reads arguments.torrents
func decodeTorrents(body []byte) ([]Torrent, error) {
	resp, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var torrents []Torrent
	if err := resp.field("torrents", &torrents); err != nil {
		return nil, err
	}
	if torrents == nil {
		torrents = []Torrent{}
	}
	return torrents, nil
}

// decodeTorrentAdded reads arguments.torrent-added or arguments.torrent-duplicate
func decodeTorrentAdded(body []byte) (*AddedTorrent, error) {
	resp, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var added AddedTorrent
	if _, ok := resp.Arguments["torrent-added"]; ok {
		if err := resp.field("torrent-added", &added); err != nil {
			return nil, err
		}
		return &added, nil
	}
	if _, ok := resp.Arguments["torrent-duplicate"]; ok {
		if err := resp.field("torrent-duplicate", &added); err != nil {
			return nil, err
		}
		added.Duplicate = true
		return &added, nil
	}
	return nil, fmt.Errorf("%w: missing \"torrent-added\"", ErrMalformedResponse)
}

// fileStat is the per-file selection state returned alongside files
type fileStat struct {
	Wanted   *bool `json:"wanted"`
	Priority int   `json:"priority"`
}

// decodeFiles reads arguments.torrents[0].files, merging fileStats when present
func decodeFiles(body []byte) ([]TransferFile, error) {
	resp, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var torrents []struct {
		Files     *[]TransferFile `json:"files"`
		FileStats []fileStat      `json:"fileStats"`
	}
	if err := resp.field("torrents", &torrents); err != nil {
		return nil, err
	}
	if len(torrents) == 0 {
		return nil, ErrTorrentNotFound
	}
	if torrents[0].Files == nil {
		return nil, fmt.Errorf("%w: missing \"files\"", ErrMalformedResponse)
	}

	files := *torrents[0].Files
	stats := torrents[0].FileStats
	if len(stats) != 0 && len(stats) != len(files) {
		return nil, fmt.Errorf("%w: %d fileStats for %d files", ErrMalformedResponse, len(stats), len(files))
	}
	for i := range files {
		// Daemons that omit fileStats download every file
		files[i].Wanted = true
		if len(stats) == 0 {
			continue
		}
		if stats[i].Wanted != nil {
			files[i].Wanted = *stats[i].Wanted
		}
		files[i].Priority = stats[i].Priority
	}
	return files, nil
}

// decodeDownloadDir reads arguments.download-dir from session-get
func decodeDownloadDir(body []byte) (string, error) {
	resp, err := decodeEnvelope(body)
	if err != nil {
		return "", err
	}

	var dir string
	if err := resp.field("download-dir", &dir); err != nil {
		return "", err
	}
	return dir, nil
}

// decodeResult is used by mutating calls. An empty body counts as success;
// anything else must be a well-formed envelope.
func decodeResult(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("%w: body is not a JSON object", ErrMalformedResponse)
	}

	var resp response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Result != nil && *resp.Result != "success" {
		return &rejection{reason: *resp.Result}
	}
	return nil
}
