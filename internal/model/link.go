package model

import "fmt"

// Platform identifies the media platform a link points at.
type Platform int

const (
	PlatformYouTube Platform = iota
	PlatformBandcamp
	PlatformSoundCloud
)

// Platforms lists every supported platform in classification order.
var Platforms = []Platform{PlatformYouTube, PlatformBandcamp, PlatformSoundCloud}

func (p Platform) String() string {
	switch p {
	case PlatformYouTube:
		return "youtube"
	case PlatformBandcamp:
		return "bandcamp"
	case PlatformSoundCloud:
		return "soundcloud"
	default:
		return fmt.Sprintf("platform(%d)", int(p))
	}
}

// LinkKind tells a single song apart from a playlist.
type LinkKind int

const (
	KindSong LinkKind = iota
	KindPlaylist
)

func (k LinkKind) String() string {
	if k == KindPlaylist {
		return "playlist"
	}
	return "song"
}

// SourceLink is a classified media URL.
//
// A SourceLink is immutable once classified. Playlist links are never fetched
// directly; they are expanded into song links first.
type SourceLink struct {
	URL      string
	Platform Platform
	Kind     LinkKind
}

// IsPlaylist reports whether the link needs expansion before fetch.
func (l SourceLink) IsPlaylist() bool {
	return l.Kind == KindPlaylist
}

func (l SourceLink) String() string {
	return fmt.Sprintf("%s %s %s", l.Platform, l.Kind, l.URL)
}
