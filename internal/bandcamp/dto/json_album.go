package dto

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/handiism/songbot/internal/model"
)

// artworkURLFormat builds the full-size cover URL from an art id.
const artworkURLFormat = "https://f4.bcbits.com/img/a%010d_0.jpg"

// bandcampDateLayouts are tried in order. Pages use "01 Jan 2023 00:00:00 GMT".
var bandcampDateLayouts = []string{
	"02 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	time.RFC3339,
}

// BandcampTime decodes the date strings found in release data. An empty
// string decodes to the zero time.
type BandcampTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (bt *BandcampTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		bt.Time = time.Time{}
		return nil
	}
	for _, layout := range bandcampDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			bt.Time = t
			return nil
		}
	}
	return fmt.Errorf("unable to parse date: %s", s)
}

// JSONAlbum is the data-tralbum object of an album or track page.
type JSONAlbum struct {
	AlbumData   *JSONAlbumData `json:"current"`
	ArtID       *int64         `json:"art_id"`
	Artist      string         `json:"artist"`
	ReleaseDate *BandcampTime  `json:"album_release_date"`
	Tracks      []JSONTrack    `json:"trackinfo"`
}

// JSONAlbumData is the "current" object: title and dates of the page itself.
type JSONAlbumData struct {
	AlbumTitle  string        `json:"title"`
	ReleaseDate *BandcampTime `json:"release_date"`
	PublishDate *BandcampTime `json:"publish_date"`
}

// releaseDate prefers the album release date, then the page's release and
// publish dates.
func (ja *JSONAlbum) releaseDate() time.Time {
	candidates := []*BandcampTime{ja.ReleaseDate}
	if ja.AlbumData != nil {
		candidates = append(candidates, ja.AlbumData.ReleaseDate, ja.AlbumData.PublishDate)
	}
	for _, c := range candidates {
		if c != nil {
			return c.Time
		}
	}
	return time.Time{}
}

// ToRelease converts the page data into a model.Release. pageURL resolves
// relative track links.
func (ja *JSONAlbum) ToRelease(pageURL string) *model.Release {
	release := &model.Release{
		Artist:      ja.Artist,
		ReleaseDate: ja.releaseDate(),
	}
	if ja.AlbumData != nil {
		release.Title = ja.AlbumData.AlbumTitle
	}
	if ja.ArtID != nil {
		release.ArtworkURL = fmt.Sprintf(artworkURLFormat, *ja.ArtID)
	}

	var base *url.URL
	if pageURL != "" {
		base, _ = url.Parse(pageURL)
	}
	for i := range ja.Tracks {
		release.Tracks = append(release.Tracks, ja.Tracks[i].ToTrack(base))
	}
	return release
}
