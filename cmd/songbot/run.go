package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/songbot/internal/delivery"
	"github.com/handiism/songbot/internal/model"
	"github.com/handiism/songbot/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		textFlag      string
		textFileFlag  string
		replyFileFlag string
		pictureFlag   string
		outFlag       string
	)

	cmd := &cobra.Command{
		Use:   "run [text]",
		Short: "Handle one message: fetch, edit and deliver",
		Long: `Handle one message the way the bot would.

The message text holds links (YouTube, Bandcamp, SoundCloud) and directives,
one per line: title, artist, album, cut, cuthead, splitchapters, cover and
replacetitle. --reply-file stands for replying to a message carrying that
audio file; links in the text are then ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := ctx.ensure()
			if err != nil {
				return err
			}

			text := textFlag
			if len(args) == 1 {
				text = strings.TrimSpace(text + "\n" + args[0])
			}
			if textFileFlag != "" {
				data, err := os.ReadFile(textFileFlag)
				if err != nil {
					return fmt.Errorf("read message text: %w", err)
				}
				text = strings.TrimSpace(text + "\n" + string(data))
			}

			req := pipeline.Request{Text: text, PictureURL: pictureFlag}
			if replyFileFlag != "" {
				att, err := replyAttachment(replyFileFlag)
				if err != nil {
					return err
				}
				req.Parent = &att
			}
			if req.Text == "" && req.Parent == nil {
				return fmt.Errorf("nothing to do: pass message text or --reply-file")
			}

			out := cmd.OutOrStdout()
			svc, err := buildServices(settings, logger, outFlag, eventPrinter(out, *ctx.verboseFlag))
			if err != nil {
				return err
			}

			res, err := svc.pipeline.Handle(cmd.Context(), req)
			if err != nil {
				return err
			}

			playlist, err := svc.sink.WritePlaylist(cmd.Context(), "songbot")
			if err != nil {
				logger.Warn("playlist not written", "error", err)
			}
			fmt.Fprintln(out, renderSummary(res, playlist))
			if len(res.Delivered) == 0 && len(res.Errors) > 0 {
				return fmt.Errorf("no file delivered")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "Message text with links and directives")
	cmd.Flags().StringVar(&textFileFlag, "text-file", "", "Read message text from a file")
	cmd.Flags().StringVarP(&replyFileFlag, "reply-file", "r", "", "Audio file the message replies to")
	cmd.Flags().StringVarP(&pictureFlag, "picture", "p", "", "Picture URL sent with the message, used as cover")
	cmd.Flags().StringVarP(&outFlag, "out", "o", ".", "Output directory")

	return cmd
}

// replyAttachment describes a local file as a chat attachment. The content
// hash is its unique id, matching what delivery caches files under.
func replyAttachment(path string) (model.Attachment, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.Attachment{}, err
	}
	id, err := delivery.ContentID(abs)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("read reply file: %w", err)
	}
	return model.Attachment{FileID: abs, UniqueID: id, FileName: filepath.Base(abs)}, nil
}
