package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch"
	"github.com/himanishpuri/AcousticMatch/pkg/logger"
	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title, artist, youtubeURL string

	cmd := &cobra.Command{
		Use:   "add [audio_file]",
		Short: "Decode an audio file or YouTube video and store it as a reference recording",
		Long: "Decode an audio file to mono PCM at the configured sample rate and store it.\n" +
			"Title and artist fall back to the file's tags, then to its name.\n" +
			"With --youtube-url the audio is downloaded with yt-dlp instead and the\n" +
			"video's title and channel are the fallbacks.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case youtubeURL != "" && len(args) > 0:
				return fmt.Errorf("give either an audio file or --youtube-url, not both")
			case youtubeURL == "" && len(args) == 0:
				return fmt.Errorf("an audio file or --youtube-url is required")
			case youtubeURL != "" && !utils.IsYouTubeURL(youtubeURL):
				return fmt.Errorf("not a YouTube video URL: %s", youtubeURL)
			case len(args) > 0 && !utils.FileExists(args[0]):
				return fmt.Errorf("file does not exist: %s", args[0])
			}

			return ctx.withService(cmd, func(svc acousticmatch.Service) error {
				var id string
				var err error
				if youtubeURL != "" {
					logger.Infof("Downloading %s", youtubeURL)
					id, err = svc.AddYouTubeRecording(cmd.Context(), youtubeURL, title, artist)
				} else {
					logger.Infof("Adding %s", args[0])
					id, err = svc.AddRecording(cmd.Context(), args[0], title, artist)
				}
				if err != nil {
					return fmt.Errorf("add recording: %w", err)
				}
				rec, err := svc.GetRecording(cmd.Context(), id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %q by %s\n", rec.Title, rec.Artist)
				fmt.Fprintf(out, "  ID:       %s\n", rec.ID)
				fmt.Fprintf(out, "  Duration: %s (%s samples at %d Hz)\n",
					formatDuration(rec.Duration), humanize.Comma(int64(rec.SampleCount)), rec.SampleRate)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Recording title")
	cmd.Flags().StringVar(&artist, "artist", "", "Recording artist")
	cmd.Flags().StringVar(&youtubeURL, "youtube-url", "", "Download the recording from a YouTube video")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored reference recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc acousticmatch.Service) error {
				recs, err := svc.ListRecordings(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "No recordings stored")
					return nil
				}

				rows := make([][]string, len(recs))
				var total int64
				for i, rec := range recs {
					total += int64(rec.SampleCount)
					rows[i] = []string{
						rec.ID,
						rec.Title,
						rec.Artist,
						formatDuration(rec.Duration),
						strconv.Itoa(rec.SampleRate),
						humanize.Time(rec.CreatedAt),
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Artist", "Duration", "Rate", "Added"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "%d recording(s), %s samples (%s as PCM)\n",
					len(recs), humanize.Comma(total), humanize.IBytes(uint64(total)*2))
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recording_id>",
		Short: "Delete a stored recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !utils.ValidID(id) {
				return fmt.Errorf("invalid recording id %q", id)
			}

			return ctx.withService(cmd, func(svc acousticmatch.Service) error {
				rec, err := svc.GetRecording(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("recording %s: %w", id, err)
				}
				if err := svc.DeleteRecording(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete recording: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q by %s (%s)\n", rec.Title, rec.Artist, rec.ID)
				return nil
			})
		},
	}
}

func formatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
