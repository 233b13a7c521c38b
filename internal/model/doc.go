// Package model defines the core data types shared across songbot.
//
// # Types
//
//   - SourceLink: a classified song or playlist URL on a supported platform
//   - Attachment: an audio file carried by a chat message, keyed by its
//     platform-unique id
//   - Metadata: the fixed set of tags (title, artist, album) plus duration
//   - Offset: a position in a track given as seconds or a timestamp
//   - Release: a Bandcamp album or track page and its tracks
//
// Values in this package are plain data. They carry no file handles and
// are safe to copy between goroutines.
package model
