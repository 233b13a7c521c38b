package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files. Extended mode adds #EXTINF lines.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates INI-style .pls files.
	FormatPLS
)

// ParsePlaylistFormat maps "m3u" or "pls" onto a format.
func ParsePlaylistFormat(name string) (PlaylistFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "m3u":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	default:
		return 0, fmt.Errorf("unsupported playlist format %q", name)
	}
}

// Ext returns the file extension of the format.
func (f PlaylistFormat) Ext() string {
	if f == FormatPLS {
		return ".pls"
	}
	return ".m3u"
}

// PlaylistEntry is one delivered file.
type PlaylistEntry struct {
	Path     string
	Title    string
	Artist   string
	Duration time.Duration
}

func (e PlaylistEntry) displayName() string {
	title := e.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
	}
	if e.Artist == "" {
		return title
	}
	return e.Artist + " - " + title
}

// PlaylistCreator generates playlist content for delivered files.
//
// Track paths in the playlist are relative (just the filename), so the
// playlist belongs in the same directory as the tracks.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist(entries)
//
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// Song Title.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool
}

// NewPlaylistCreator creates a new PlaylistCreator. extended only affects M3U.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{format: format, extended: extended}
}

// Format returns the playlist format.
func (p *PlaylistCreator) Format() PlaylistFormat {
	return p.format
}

// CreatePlaylist renders entries in order.
func (p *PlaylistCreator) CreatePlaylist(entries []PlaylistEntry) string {
	if p.format == FormatPLS {
		return p.createPLS(entries)
	}
	return p.createM3U(entries)
}

func (p *PlaylistCreator) createM3U(entries []PlaylistEntry) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, e := range entries {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s\n", int(e.Duration.Seconds()), e.displayName())
		}
		sb.WriteString(filepath.Base(e.Path) + "\n")
	}
	return sb.String()
}

func (p *PlaylistCreator) createPLS(entries []PlaylistEntry) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, e := range entries {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, filepath.Base(e.Path))
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, e.displayName())
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, int(e.Duration.Seconds()))
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(entries))
	sb.WriteString("Version=2\n")
	return sb.String()
}
