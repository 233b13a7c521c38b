package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/songbot/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)
)

// eventPrinter renders pipeline events, hiding verbose ones unless asked.
func eventPrinter(out io.Writer, verbose bool) func(pipeline.Event) {
	return func(e pipeline.Event) {
		switch e.Level {
		case pipeline.LevelVerbose:
			if verbose {
				fmt.Fprintln(out, dimStyle.Render(e.Message))
			}
		case pipeline.LevelWarning:
			fmt.Fprintln(out, warningStyle.Render("! "+e.Message))
		case pipeline.LevelError:
			fmt.Fprintln(out, errorStyle.Render("✗ "+e.Message))
		case pipeline.LevelSuccess:
			fmt.Fprintln(out, successStyle.Render("✓ "+e.Message))
		default:
			fmt.Fprintln(out, infoStyle.Render(e.Message))
		}
	}
}

// renderSummary boxes the delivered files of one request.
func renderSummary(res pipeline.Result, playlist string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%d file(s) delivered", len(res.Delivered))))
	for _, d := range res.Delivered {
		name := filepath.Base(d.Path)
		if d.Meta.Artist != "" {
			name += dimStyle.Render("  " + d.Meta.Artist)
		}
		sb.WriteString("\n" + successStyle.Render("♪ ") + name)
	}
	if playlist != "" {
		sb.WriteString("\n" + infoStyle.Render("playlist: "+filepath.Base(playlist)))
	}
	if n := len(res.Errors); n > 0 {
		sb.WriteString("\n" + warningStyle.Render(fmt.Sprintf("%d step(s) failed", n)))
	}
	return boxStyle.Render(sb.String())
}
