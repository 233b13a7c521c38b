package bandcamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/handiism/songbot/internal/bandcamp/dto"
	"github.com/handiism/songbot/internal/model"
)

var (
	errNoReleaseData = errors.New("no data-tralbum attribute in page")

	// urlConcat matches the JavaScript string concatenation some pages leave
	// inside the embedded JSON: url: "http://a.bandcamp.com" + "/album/x",
	urlConcat = regexp.MustCompile(`(url: ".+)" \+ "(.+",)`)

	// lyricsRow captures the first <div> body after a lyrics_row_N id.
	lyricsRow = regexp.MustCompile(`(?s)id="lyrics_row_(\d+)"[^>]*>(.*?)</div>`)
)

// Parser reads the release data Bandcamp embeds in album and track pages.
//
// The data lives HTML-escaped in a data-tralbum attribute:
//
//	<script ... data-tralbum="{&quot;artist&quot;:...}">
//
// Lyrics are not always part of it and are scraped from lyrics_row_N
// elements instead.
type Parser struct {
	tagPattern *regexp.Regexp
}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{tagPattern: regexp.MustCompile(`<[^>]*>`)}
}

// ParseReleasePage extracts the release on an album or track page. pageURL
// is the address the page was fetched from; relative track links resolve
// against it.
func (p *Parser) ParseReleasePage(htmlContent, pageURL string) (*model.Release, error) {
	raw, err := extractAlbumData(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve album data: %w", err)
	}

	var album dto.JSONAlbum
	if err := unmarshalAlbum(fixJSON(raw), &album); err != nil {
		return nil, fmt.Errorf("failed to parse album JSON: %w", err)
	}

	release := album.ToRelease(pageURL)
	p.extractLyrics(htmlContent, release)
	return release, nil
}

// extractAlbumData returns the unescaped JSON of the data-tralbum attribute.
func extractAlbumData(htmlContent string) (string, error) {
	const open = `data-tralbum="{`

	start := strings.Index(htmlContent, open)
	if start == -1 {
		return "", errNoReleaseData
	}
	rest := htmlContent[start+len(open)-1:]

	end := strings.Index(rest, `}"`)
	if end == -1 {
		return "", fmt.Errorf("unterminated data-tralbum attribute")
	}
	return html.UnescapeString(rest[:end+1]), nil
}

// unmarshalAlbum decodes data, running it through jsonrepair once when it is
// not valid JSON.
func unmarshalAlbum(data string, album *dto.JSONAlbum) error {
	err := json.Unmarshal([]byte(data), album)
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, repairErr := jsonrepair.JSONRepair(data)
	if repairErr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), album)
}

// fixJSON joins concatenated URL literals so the data parses as JSON.
func fixJSON(albumData string) string {
	return urlConcat.ReplaceAllString(albumData, "${1}${2}")
}

// extractLyrics fills in lyrics from the page for tracks whose JSON had none.
func (p *Parser) extractLyrics(htmlContent string, release *model.Release) {
	rows := make(map[string]string)
	for _, m := range lyricsRow.FindAllStringSubmatch(htmlContent, -1) {
		if _, seen := rows[m[1]]; !seen {
			rows[m[1]] = m[2]
		}
	}
	if len(rows) == 0 {
		return
	}

	for i := range release.Tracks {
		track := &release.Tracks[i]
		if track.Lyrics != "" {
			continue
		}
		body, ok := rows[fmt.Sprint(track.Number)]
		if !ok {
			continue
		}
		text := p.tagPattern.ReplaceAllString(body, "")
		track.Lyrics = strings.TrimSpace(html.UnescapeString(text))
	}
}
