package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/audio"
	"github.com/himanishpuri/AcousticMatch/pkg/logger"
	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

func newSnipCommand() *cobra.Command {
	var start, duration time.Duration

	cmd := &cobra.Command{
		Use:   "snip <input> <output>",
		Short: "Cut a clip out of an audio file, for use as a match query",
		Long: "Cut a clip out of an audio file. WAV to WAV cuts are done natively and\n" +
			"write mono 16-bit output; anything else goes through ffmpeg.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]

			if isWAV(in) && isWAV(out) {
				sig, err := audio.DecodeWAVFile(in)
				switch {
				case err == nil:
					clip, err := audio.SnipSignal(sig, start, duration)
					if err != nil {
						return err
					}
					if err := utils.MakeDir(filepath.Dir(out)); err != nil {
						return err
					}
					if err := audio.WriteWAVFile(out, clip); err != nil {
						return fmt.Errorf("write %s: %w", out, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d Hz)\n", out, formatDuration(clip.Duration()), clip.SampleRate())
					return nil
				case !errors.Is(err, audio.ErrUnsupportedFormat):
					return err
				}
				logger.Debugf("Native decode of %s unsupported, using ffmpeg", in)
			}

			if !audio.FFmpegAvailable() {
				return errors.New("ffmpeg is required to snip this file")
			}
			if err := audio.Snip(cmd.Context(), in, out, start, duration); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().DurationVar(&start, "start", 0, "Offset of the clip from the start of the input")
	cmd.Flags().DurationVar(&duration, "duration", audio.DefaultSnipDuration, "Clip length")
	return cmd
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <audio_file>",
		Short: "Show an audio file's format and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			st, err := os.Stat(path)
			if err != nil {
				return err
			}

			meta, err := audio.ReadMetadata(cmd.Context(), path)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"File", filepath.Base(path)},
				{"Size", humanize.Bytes(uint64(st.Size()))},
				{"Format", meta.Format},
				{"Duration", formatDuration(time.Duration(meta.DurationSec * float64(time.Second)))},
				{"Sample rate", strconv.Itoa(meta.SampleRate)},
				{"Channels", strconv.Itoa(meta.Channels)},
				{"Bit depth", strconv.Itoa(meta.BitDepth)},
				{"Title", meta.Title},
				{"Artist", meta.Artist},
				{"Album", meta.Album},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func isWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}
