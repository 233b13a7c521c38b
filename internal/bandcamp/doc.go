// Package bandcamp reads Bandcamp release pages and downloads their tracks.
//
// Bandcamp embeds release data as JSON in the HTML page within a
// `data-tralbum` attribute. Parser extracts and parses that JSON, handling
// Bandcamp's non-standard date format and fixing malformed JSON.
//
// Client builds on the parser:
//
//   - as a playlist expander it turns an album page into its track page URLs
//   - as a downloader it fetches the 128 kbps MP3 stream of a track page,
//     retrying with exponential backoff, and tags it with title, artist,
//     album, year, track number, lyrics and a square cover
//
// Example:
//
//	client := bandcamp.NewClient(bandcamp.Options{MaxRetries: 7, RetryCooldown: 0.2, RetryExponent: 4})
//	tracks, err := client.ExpandPlaylist(ctx, albumLink)
package bandcamp
