// Command songbot fetches songs from links or files, edits them according to
// the directives in a message, and delivers the results into a directory.
//
// Usage:
//
//	songbot run --text "https://youtu.be/abc
//	cut 0:10 1:30
//	title Intro" --out ./songs
//	songbot run --reply-file ./songs/Intro.mp3 --text "artist Someone" --out ./songs
//	songbot cache sweep
//	songbot deps
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}
