package transmission

import "fmt"

// Status represents the state of a transfer as reported by the daemon
type Status int

const (
	// StatusStopped indicates a paused transfer
	StatusStopped Status = iota
	// StatusCheckWait indicates a transfer queued for verification
	StatusCheckWait
	// StatusChecking indicates a transfer being verified
	StatusChecking
	// StatusDownloadWait indicates a transfer queued for download
	StatusDownloadWait
	// StatusDownloading indicates an active download
	StatusDownloading
	// StatusSeedWait indicates a transfer queued for seeding
	StatusSeedWait
	// StatusSeeding indicates an active seed
	StatusSeeding
)

// String returns the string representation of a Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusCheckWait:
		return "check_wait"
	case StatusChecking:
		return "checking"
	case StatusDownloadWait:
		return "download_wait"
	case StatusDownloading:
		return "downloading"
	case StatusSeedWait:
		return "seed_wait"
	case StatusSeeding:
		return "seeding"
	default:
		return "unknown"
	}
}

// ParseStatus maps a status name back to its Status value
func ParseStatus(name string) (Status, bool) {
	for s := StatusStopped; s <= StatusSeeding; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Priority is the bandwidth priority applied to all files of a transfer
type Priority string

const (
	PriorityHigh   Priority = "priority-high"
	PriorityNormal Priority = "priority-normal"
	PriorityLow    Priority = "priority-low"
)

// ParsePriority accepts either the short name ("high") or the wire key ("priority-high")
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "high", string(PriorityHigh):
		return PriorityHigh, nil
	case "normal", string(PriorityNormal):
		return PriorityNormal, nil
	case "low", string(PriorityLow):
		return PriorityLow, nil
	}
	return "", fmt.Errorf("unknown priority %q (want high, normal or low)", s)
}

// Torrent is a single transfer as returned by torrent-get
type Torrent struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	TotalSize        int64   `json:"totalSize"`
	PercentDone      float64 `json:"percentDone"`
	Status           Status  `json:"status"`
	PeersSendingToUs int     `json:"peersSendingToUs"`
	PeersConnected   int     `json:"peersConnected"`
	DownloadDir      string  `json:"downloadDir"`
	RateDownload     int64   `json:"rateDownload"`
	RateUpload       int64   `json:"rateUpload"`
	Error            int     `json:"error"`
	ErrorString      string  `json:"errorString"`
}

// IsStopped reports whether the transfer is paused
func (t Torrent) IsStopped() bool {
	return t.Status == StatusStopped
}

// IsDone reports whether every wanted byte has been downloaded
func (t Torrent) IsDone() bool {
	return t.PercentDone >= 1
}

// PeerSummary describes the transfer's peer activity in one line
func (t Torrent) PeerSummary() string {
	switch t.Status {
	case StatusSeeding:
		return fmt.Sprintf("Seeding to %d of %d peers", t.PeersConnected-t.PeersSendingToUs, t.PeersConnected)
	case StatusStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Downloading from %d of %d peers", t.PeersSendingToUs, t.PeersConnected)
	}
}

// TransferFile is one file inside a multi-file transfer
type TransferFile struct {
	Name           string `json:"name"`
	Length         int64  `json:"length"`
	BytesCompleted int64  `json:"bytesCompleted"`
	// Wanted and Priority come from the torrent's fileStats
	Wanted   bool `json:"-"`
	Priority int  `json:"-"`
}

// Progress returns the completed fraction of the file
func (f TransferFile) Progress() float64 {
	if f.Length <= 0 {
		return 0
	}
	return float64(f.BytesCompleted) / float64(f.Length)
}

// AddedTorrent describes the transfer created (or found) by torrent-add
type AddedTorrent struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
	// Duplicate is set when the daemon already had this transfer
	Duplicate bool `json:"-"`
}

// AddRequest describes a torrent to add. Exactly one of Magnet or Metainfo must be set.
type AddRequest struct {
	// Magnet is a magnet link or URL passed to the daemon as "filename"
	Magnet string
	// Metainfo is the raw .torrent file content
	Metainfo []byte
	// DownloadDir is the target save directory on the server
	DownloadDir string
}
