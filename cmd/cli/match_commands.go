package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/correlation"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "match <audio_file>",
		Short: "Find the stored recording that best correlates with a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc acousticmatch.Service) error {
				report, err := svc.MatchFile(cmd.Context(), args[0])
				if report == nil {
					return fmt.Errorf("match: %w", err)
				}
				printReport(cmd.OutOrStdout(), report, top)
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of candidates to show (0 shows all)")
	return cmd
}

// printReport writes the winner and a table of candidates ordered by
// descending score. Failed candidates sort last.
func printReport(out io.Writer, report *acousticmatch.MatchReport, top int) {
	if !report.Complete {
		fmt.Fprintln(out, "Match interrupted; results are partial")
	}
	if report.Best == nil {
		fmt.Fprintln(out, "No match found")
	} else {
		fmt.Fprintf(out, "Best match: %q by %s (%s)\n", report.Best.Title, report.Best.Artist, report.Best.ID)
		fmt.Fprintf(out, "  Score: %.0f\n", report.BestScore)
	}
	fmt.Fprintf(out, "Scanned %d candidate(s) at factor %d in %s\n",
		len(report.Candidates), report.Factor, report.Elapsed.Round(time.Millisecond))
	if len(report.Candidates) == 0 {
		return
	}

	ranked := slices.Clone(report.Candidates)
	slices.SortStableFunc(ranked, func(a, b acousticmatch.CandidateResult) int {
		if a.Failed() != b.Failed() {
			if a.Failed() {
				return 1
			}
			return -1
		}
		return cmp.Compare(b.Score, a.Score)
	})
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	rows := make([][]string, len(ranked))
	for i, c := range ranked {
		score := strconv.FormatFloat(c.Score, 'f', 0, 64)
		status := "ok"
		if c.Failed() {
			score = "-"
			status = c.Error
		}
		rows[i] = []string{strconv.Itoa(i + 1), c.Title, c.Artist, score, status}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Title", "Artist", "Score", "Status"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "compare <audio_a> <audio_b>",
		Short: "Cross-correlate two audio files and report their similarity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := correlation.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc acousticmatch.Service) error {
				score, err := svc.CompareFiles(cmd.Context(), args[0], args[1], mode)
				if err != nil {
					return fmt.Errorf("compare: %w", err)
				}
				printScore(cmd.OutOrStdout(), score, cfg.Audio.SampleRate)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", correlation.Full.String(), "Correlation mode: full or valid")
	return cmd
}

func printScore(out io.Writer, s correlation.Score, rate int) {
	rows := [][]string{
		{"Mode", s.Mode.String()},
		{"Normalized", strconv.FormatFloat(s.Normalized, 'f', 4, 64)},
		{"Confidence", fmt.Sprintf("%.1f%%", s.Confidence()*100)},
		{"Peak", strconv.FormatFloat(s.Peak, 'f', 0, 64)},
		{"Peak lag", fmt.Sprintf("%d (%s)", s.PeakLag, lagTime(s.PeakLag, rate))},
		{"Raw (lag 0)", strconv.FormatFloat(s.Raw, 'f', 0, 64)},
		{"Legacy", strconv.FormatFloat(s.Legacy, 'f', 2, 64)},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// lagTime converts a lag in samples to a signed offset.
func lagTime(lag, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(lag) * time.Second / time.Duration(rate)
}
