package audio

import (
	"fmt"
	"strconv"

	"github.com/bogem/id3v2"

	"github.com/handiism/songbot/internal/model"
)

// TagEditAction defines how SaveTags treats one ID3 field.
type TagEditAction int

const (
	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify TagEditAction = iota

	// TagModify writes the value from Tags. Empty values leave the tag alone.
	TagModify

	// TagEmpty clears the tag.
	TagEmpty
)

// TagConfig holds the per-field behaviour of SaveTags.
//
// Example:
//
//	cfg := &TagConfig{
//	    Artist:     TagModify,
//	    Album:      TagModify,
//	    TrackTitle: TagModify,
//	    Comments:   TagEmpty,  // drop comments left by the source
//	}
type TagConfig struct {
	Artist      TagEditAction
	AlbumArtist TagEditAction
	Album       TagEditAction
	Year        TagEditAction
	TrackNumber TagEditAction
	TrackTitle  TagEditAction
	Lyrics      TagEditAction
	Comments    TagEditAction
}

// DefaultTagConfig modifies every field from the source and clears comments.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		Year:        TagModify,
		TrackNumber: TagModify,
		TrackTitle:  TagModify,
		Lyrics:      TagModify,
		Comments:    TagEmpty,
	}
}

// Tags is the set of values a downloader writes onto a fresh file.
type Tags struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Year        string
	TrackNumber int
	Lyrics      string

	// Cover is a JPEG image. Nil keeps the current cover.
	Cover []byte
}

// Tagger reads and writes ID3 tags of MP3 files.
//
// Example:
//
//	tagger := NewTagger(nil)
//	meta, err := tagger.ReadTags("/work/tmp_1c9e.mp3")
//	err = tagger.SetField("/work/tmp_1c9e.mp3", model.FieldTitle, "New title")
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a Tagger. A nil config means DefaultTagConfig().
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

func open(path string) (*id3v2.Tag, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("%w: open tags of %s: %v", ErrTool, path, err)
	}
	return tag, nil
}

func save(tag *id3v2.Tag, path string) error {
	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: save tags of %s: %v", ErrTool, path, err)
	}
	return nil
}

// ReadTags returns the title, artist and album of the file at path. Duration
// is left zero.
func (t *Tagger) ReadTags(path string) (model.Metadata, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Title", "Artist", "Album/Movie/Show title"}})
	if err != nil {
		return model.Metadata{}, fmt.Errorf("%w: read tags of %s: %v", ErrTool, path, err)
	}
	defer tag.Close()

	return model.Metadata{
		Title:  tag.Title(),
		Artist: tag.Artist(),
		Album:  tag.Album(),
	}, nil
}

// SetField rewrites a single tag field in place.
func (t *Tagger) SetField(path string, field model.Field, value string) error {
	tag, err := open(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	switch field {
	case model.FieldTitle:
		tag.SetTitle(value)
	case model.FieldArtist:
		tag.SetArtist(value)
	case model.FieldAlbum:
		tag.SetAlbum(value)
	default:
		return fmt.Errorf("%w: unknown tag field %q", ErrTool, field)
	}
	return save(tag, path)
}

// SetCover replaces every attached picture with jpeg as the front cover.
func (t *Tagger) SetCover(path string, jpeg []byte) error {
	if len(jpeg) == 0 {
		return fmt.Errorf("%w: empty cover image for %s", ErrTool, path)
	}
	tag, err := open(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	setPicture(tag, jpeg)
	return save(tag, path)
}

// ReadCover returns the front cover of the file, falling back to the first
// attached picture. It returns nil when the file carries no picture.
func (t *Tagger) ReadCover(path string) ([]byte, error) {
	tag, err := open(path)
	if err != nil {
		return nil, err
	}
	defer tag.Close()

	var first []byte
	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		if pic.PictureType == id3v2.PTFrontCover {
			return pic.Picture, nil
		}
		if first == nil {
			first = pic.Picture
		}
	}
	return first, nil
}

// SaveTags writes tags according to the tagger's TagConfig.
func (t *Tagger) SaveTags(path string, tags Tags) error {
	tag, err := open(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	t.updateStringTags(tag, tags)
	if tags.Cover != nil {
		setPicture(tag, tags.Cover)
	}
	return save(tag, path)
}

func (t *Tagger) updateStringTags(tag *id3v2.Tag, tags Tags) {
	apply(t.config.Artist, tags.Artist, tag.SetArtist, func() { tag.SetArtist("") })
	apply(t.config.Album, tags.Album, tag.SetAlbum, func() { tag.SetAlbum("") })
	apply(t.config.TrackTitle, tags.Title, tag.SetTitle, func() { tag.SetTitle("") })
	apply(t.config.Year, tags.Year, tag.SetYear, func() { tag.DeleteFrames(tag.CommonID("Year")) })
	apply(t.config.AlbumArtist, tags.AlbumArtist,
		func(v string) { tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, v) },
		func() { tag.DeleteFrames("TPE2") })

	number := ""
	if tags.TrackNumber > 0 {
		number = strconv.Itoa(tags.TrackNumber)
	}
	apply(t.config.TrackNumber, number,
		func(v string) { tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, v) },
		func() { tag.DeleteFrames(tag.CommonID("Track number/Position in set")) })

	lyricsID := tag.CommonID("Unsynchronised lyrics/text transcription")
	apply(t.config.Lyrics, tags.Lyrics,
		func(v string) {
			tag.DeleteFrames(lyricsID)
			tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
				Encoding: id3v2.EncodingUTF8,
				Language: "eng",
				Lyrics:   v,
			})
		},
		func() { tag.DeleteFrames(lyricsID) })

	if t.config.Comments == TagEmpty {
		tag.DeleteFrames(tag.CommonID("Comments"))
	}
}

func apply(action TagEditAction, value string, set func(string), clear func()) {
	switch action {
	case TagEmpty:
		clear()
	case TagModify:
		if value != "" {
			set(value)
		}
	}
}

// setPicture replaces existing pictures with a front cover.
func setPicture(tag *id3v2.Tag, jpeg []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover (front)",
		Picture:     jpeg,
	})
}
