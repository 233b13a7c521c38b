package links

import (
	"regexp"

	"github.com/handiism/songbot/internal/model"
)

// platformPatterns holds the URL shapes recognized for one platform.
type platformPatterns struct {
	platform model.Platform
	songs    []*regexp.Regexp
	playlist []*regexp.Regexp
}

var patterns = []platformPatterns{
	{
		platform: model.PlatformYouTube,
		songs: []*regexp.Regexp{
			regexp.MustCompile(`^https://(?:www\.)?youtu\.be/[\w-]+$`),
			regexp.MustCompile(`^https?://(?:www\.)?(?:music\.)?youtube\.com/watch\?(?:\S*&)?v=[\w-]+(?:&\S*)?$`),
		},
		playlist: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(?:www\.)?(?:music\.)?youtube\.com/playlist\?list=[\w-]+$`),
		},
	},
	{
		platform: model.PlatformBandcamp,
		songs: []*regexp.Regexp{
			regexp.MustCompile(`^https://[\w-]+\.bandcamp\.com/track/[\w-]+$`),
		},
		playlist: []*regexp.Regexp{
			regexp.MustCompile(`^https://[\w-]+\.bandcamp\.com/album/[\w-]+$`),
		},
	},
	{
		platform: model.PlatformSoundCloud,
		songs: []*regexp.Regexp{
			regexp.MustCompile(`^https://soundcloud\.com/[\w-]+/[\w-]+$`),
		},
		playlist: []*regexp.Regexp{
			regexp.MustCompile(`^https://soundcloud\.com/[\w-]+/sets/[\w-]+$`),
		},
	},
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// match classifies token against one platform. Playlist shapes are checked
// first so that a SoundCloud set never passes for a song.
func (p platformPatterns) match(token string) (model.SourceLink, bool) {
	if matchAny(p.playlist, token) {
		return model.SourceLink{URL: token, Platform: p.platform, Kind: model.KindPlaylist}, true
	}
	if matchAny(p.songs, token) {
		return model.SourceLink{URL: token, Platform: p.platform, Kind: model.KindSong}, true
	}
	return model.SourceLink{}, false
}
