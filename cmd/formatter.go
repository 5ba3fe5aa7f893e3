package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"github.com/s0up4200/missionctl/transmission"
)

// Color palette
var (
	colorSeeding     = lipgloss.Color("76")  // green
	colorDownloading = lipgloss.Color("39")  // blue
	colorQueued      = lipgloss.Color("214") // orange
	colorError       = lipgloss.Color("196") // bright red
	colorMuted       = lipgloss.Color("242") // gray
)

// Formatter renders transfers for the console
type Formatter struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	errText lipgloss.Style
	ok      lipgloss.Style
	status  map[transmission.Status]lipgloss.Style
}

// NewFormatter creates a formatter writing to stdout; color false yields plain text
func NewFormatter(color bool) *Formatter {
	return newFormatterFor(os.Stdout, color)
}

func newFormatterFor(w io.Writer, color bool) *Formatter {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	downloading := r.NewStyle().Foreground(colorDownloading)
	queued := r.NewStyle().Foreground(colorQueued)

	return &Formatter{
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		errText: r.NewStyle().Foreground(colorError).Bold(true),
		ok:      r.NewStyle().Foreground(colorSeeding),
		status: map[transmission.Status]lipgloss.Style{
			transmission.StatusStopped:      r.NewStyle().Foreground(colorMuted),
			transmission.StatusCheckWait:    queued,
			transmission.StatusChecking:     queued,
			transmission.StatusDownloadWait: queued,
			transmission.StatusDownloading:  downloading,
			transmission.StatusSeedWait:     queued,
			transmission.StatusSeeding:      r.NewStyle().Foreground(colorSeeding),
		},
	}
}

// TorrentList formats a list of transfers as a tree
func (f *Formatter) TorrentList(torrents []transmission.Torrent) string {
	if len(torrents) == 0 {
		return "No torrents found\n"
	}

	var sb strings.Builder

	header := "Torrent"
	if len(torrents) != 1 {
		header += "s"
	}
	fmt.Fprintf(&sb, "%s\n\n", f.title.Render(fmt.Sprintf("%s (%d):", header, len(torrents))))

	for i, t := range torrents {
		isLast := i == len(torrents)-1
		prefix, indent := "├── ", "│   "
		if isLast {
			prefix, indent = "╰── ", "    "
		}

		fmt.Fprintf(&sb, "%s%s %s\n", prefix, f.muted.Render(fmt.Sprintf("[%d]", t.ID)), t.Name)
		fmt.Fprintf(&sb, "%s%s  %s\n", indent, f.statusLabel(t.Status), f.progress(t))
		fmt.Fprintf(&sb, "%s%s\n", indent, f.muted.Render(f.activity(t)))
		if t.Error != 0 && t.ErrorString != "" {
			fmt.Fprintf(&sb, "%s%s\n", indent, f.errText.Render("Error: "+t.ErrorString))
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	return sb.String()
}

func (f *Formatter) statusLabel(s transmission.Status) string {
	label := strings.ReplaceAll(s.String(), "_", " ")
	style, ok := f.status[s]
	if !ok {
		return label
	}
	return style.Render(label)
}

func (f *Formatter) progress(t transmission.Torrent) string {
	return fmt.Sprintf("%.1f%% of %s", t.PercentDone*100, humanize.IBytes(uint64(max(t.TotalSize, 0))))
}

func (f *Formatter) activity(t transmission.Torrent) string {
	summary := t.PeerSummary()
	if t.IsStopped() {
		return summary
	}
	return fmt.Sprintf("%s  ↓ %s/s  ↑ %s/s", summary,
		humanize.IBytes(uint64(max(t.RateDownload, 0))),
		humanize.IBytes(uint64(max(t.RateUpload, 0))))
}

// Files formats the files of one transfer with their indices
func (f *Formatter) Files(files []transmission.TransferFile) string {
	if len(files) == 0 {
		return "No files\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", f.title.Render(fmt.Sprintf("Files (%d):", len(files))))
	for i, file := range files {
		fmt.Fprintf(&sb, "%s %s  %s",
			f.muted.Render(fmt.Sprintf("%3d", i)),
			file.Name,
			f.muted.Render(fmt.Sprintf("%.1f%% of %s", file.Progress()*100, humanize.IBytes(uint64(max(file.Length, 0))))))
		if !file.Wanted {
			sb.WriteString("  " + f.status[transmission.StatusStopped].Render("skipped"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Refresh formats the heading of one watch refresh
func (f *Formatter) Refresh(host string, at time.Time) string {
	return f.title.Render(fmt.Sprintf("%s  %s", host, at.Format("15:04:05"))) + "\n"
}

// Failure formats a diagnostic line
func (f *Formatter) Failure(msg string) string {
	return f.errText.Render("✗ "+msg) + "\n"
}

// Success formats a confirmation line
func (f *Formatter) Success(msg string) string {
	return f.ok.Render("✓ "+msg) + "\n"
}
