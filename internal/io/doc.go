// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - File copying and atomic writes
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation
//   - Square thumbnail generation and format conversion
//
// # File Operations
//
//	// Copy a file
//	err := ioutils.CopyFile(ctx, "/src/file.mp3", "/dst/file.mp3")
//
//	// Write a stream to a file without exposing partial content
//	err := ioutils.WriteFileAtomic(ctx, "/cache/key.mp3", body)
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Image Processing
//
// The ImageService prepares cover art for embedding:
//
//	svc := ioutils.NewImageService()
//	thumb, _ := svc.SquareThumbnail(ctx, pictureData, 300)
//
// JPEG, PNG, GIF and WebP inputs are accepted; output is always JPEG.
package ioutils
