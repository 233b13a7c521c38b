package model

import "time"

// Release is a Bandcamp album or track page with its tracks.
//
// A track page is a release with a single track. Tracks that cannot be
// streamed carry an empty Mp3URL.
type Release struct {
	Artist string
	Title  string

	// ArtworkURL is empty when the release has no artwork.
	ArtworkURL string

	ReleaseDate time.Time
	Tracks      []ReleaseTrack
}

// HasArtwork reports whether the release has cover art.
func (r *Release) HasArtwork() bool {
	return r.ArtworkURL != ""
}

// Year returns the four digit release year, or "" when unknown.
func (r *Release) Year() string {
	if r.ReleaseDate.IsZero() {
		return ""
	}
	return r.ReleaseDate.Format("2006")
}

// ReleaseTrack is one track of a Release.
type ReleaseTrack struct {
	// Number is the track number (1-indexed).
	Number int

	Title string

	// Duration is the track length in seconds.
	Duration float64

	Lyrics string

	// Mp3URL is the stream to download.
	Mp3URL string

	// PageURL is the absolute URL of the track page.
	PageURL string
}
