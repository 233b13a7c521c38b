// Package ytdlp downloads audio and expands playlists with yt-dlp.
package ytdlp
