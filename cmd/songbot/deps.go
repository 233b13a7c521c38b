package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/handiism/songbot/internal/ytdlp"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that yt-dlp, ffmpeg and ffprobe are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := ctx.ensure()
			if err != nil {
				return err
			}
			report := ytdlp.DependencyStatus(settings.YTDLPPath, settings.FFmpegPath, settings.FFprobePath)
			out := cmd.OutOrStdout()
			printDep(out, "yt-dlp", report.YTDLPFound, report.YTDLPPath)
			printDep(out, "ffmpeg", report.FFmpegFound, report.FFmpegPath)
			printDep(out, "ffprobe", report.FFprobeFound, report.FFprobePath)
			return report.CheckDependencies()
		},
	}
}

func printDep(out io.Writer, name string, found bool, path string) {
	if found {
		fmt.Fprintf(out, "%s %s %s\n", successStyle.Render("✓"), name, dimStyle.Render(path))
		return
	}
	fmt.Fprintf(out, "%s %s %s\n", errorStyle.Render("✗"), name, dimStyle.Render("not found"))
}
