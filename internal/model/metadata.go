package model

import (
	"fmt"
	"time"
)

// Field names a tag field that can be rewritten on an audio file.
type Field string

const (
	FieldTitle  Field = "title"
	FieldArtist Field = "artist"
	FieldAlbum  Field = "album"
)

// ParseField maps a directive name onto a tag field.
func ParseField(name string) (Field, error) {
	switch Field(name) {
	case FieldTitle, FieldArtist, FieldAlbum:
		return Field(name), nil
	default:
		return "", fmt.Errorf("unknown tag field %q", name)
	}
}

// Metadata holds the tags of an audio file. Empty strings mean the tag is
// absent.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Get returns the value stored for field.
func (m Metadata) Get(field Field) string {
	switch field {
	case FieldTitle:
		return m.Title
	case FieldArtist:
		return m.Artist
	case FieldAlbum:
		return m.Album
	default:
		return ""
	}
}

// HasTitle reports whether a title tag is present.
func (m Metadata) HasTitle() bool {
	return m.Title != ""
}
