// Package audio edits MP3 files: ID3 tags, cover art, cuts, and playlists of
// delivered files.
//
// # ID3 Tagging
//
// Tagger reads and writes tags in place through id3v2:
//
//	tagger := audio.NewTagger(nil)
//	err := tagger.SetField(path, model.FieldArtist, "Someone")
//
// # Tool
//
// Tool is the audio tool the transform chain drives. Tag edits stay in
// process; cutting and duration probing run ffmpeg and ffprobe:
//
//	tool, err := audio.NewTool(audio.ToolOptions{Paths: workfiles})
//	out, err := tool.Cut(ctx, path, 10, 20)
//
// Every failure is reported wrapped in ErrTool.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true)
//	content := creator.CreatePlaylist(entries)
package audio
