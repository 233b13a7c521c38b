// Package http provides the HTTP client used to fetch pages, pictures and
// audio streams.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Streaming downloads that the cache writes to disk atomically
//   - Timeout handling
//
// # Basic Usage
//
//	client := http.NewClient()
//
//	// Fetch HTML page
//	html, err := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
//
//	// Download a picture
//	data, err := client.DownloadBytes(ctx, pictureURL)
package http
