package dto

import (
	"net/url"
	"strings"

	"github.com/handiism/songbot/internal/model"
)

// JSONTrack is one entry of the trackinfo list.
type JSONTrack struct {
	Duration  float64      `json:"duration"`
	File      *JSONMp3File `json:"file"`
	Lyrics    string       `json:"lyrics"`
	Number    *int         `json:"track_num"`
	Title     string       `json:"title"`
	TitleLink string       `json:"title_link"`
}

// JSONMp3File holds the stream URLs of a track. It is null for tracks that
// cannot be streamed for free.
type JSONMp3File struct {
	URL string `json:"mp3-128"`
}

// ToTrack converts the entry into a model.ReleaseTrack. base resolves the
// relative title_link; a nil base keeps only absolute links.
func (jt *JSONTrack) ToTrack(base *url.URL) model.ReleaseTrack {
	track := model.ReleaseTrack{
		Number:   1,
		Title:    jt.Title,
		Duration: jt.Duration,
		Lyrics:   jt.Lyrics,
	}
	if jt.Number != nil {
		track.Number = *jt.Number
	}
	if jt.File != nil {
		track.Mp3URL = jt.File.URL
		if strings.HasPrefix(track.Mp3URL, "//") {
			track.Mp3URL = "https:" + track.Mp3URL
		}
	}
	if jt.TitleLink != "" {
		if ref, err := url.Parse(jt.TitleLink); err == nil {
			switch {
			case base != nil:
				track.PageURL = base.ResolveReference(ref).String()
			case ref.IsAbs():
				track.PageURL = ref.String()
			}
		}
	}
	return track
}
