package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/adgate"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/fyrsmithlabs/daybook/internal/resolver"
	"github.com/fyrsmithlabs/daybook/internal/submission"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const adLoadTimeout = 10 * time.Second

type writeOptions struct {
	title   string
	file    string
	mood    string
	weather string
	date    string
	ad      string
}

func newWriteCmd(opts *rootOptions) *cobra.Command {
	wo := &writeOptions{}
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write an entry and request its analysis",
		Long: `Write an entry in English and submit it for analysis.

The body is read from --file, or from stdin when --file is "-" or unset.
When ads are enabled a reward ad is shown first; dismissing it cancels the
submission.

Examples:
  # Write today's entry from a file
  daybook write --title "A good day" --mood good --weather sunny --file today.txt

  # Write for a past date, reading the body from stdin
  echo "..." | daybook write --title "Rainy Monday" --date 2024-03-04 --mood bad --weather rainy

  # Try the flow with a simulated ad that is dismissed
  daybook write --ad dismiss --title "Test" --file today.txt`,
		Args: cobra.NoArgs,
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			return runWrite(ctx, cmd, a, wo)
		}),
	}

	cmd.Flags().StringVarP(&wo.title, "title", "t", "", "entry title")
	cmd.Flags().StringVarP(&wo.file, "file", "f", "-", `file holding the entry body, "-" for stdin`)
	cmd.Flags().StringVar(&wo.mood, "mood", string(diary.MoodNeutral), "mood: very_bad, bad, neutral, good, very_good")
	cmd.Flags().StringVar(&wo.weather, "weather", string(diary.WeatherSunny), "weather: sunny, cloudy, rainy, snowy")
	cmd.Flags().StringVar(&wo.date, "date", "", "entry date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&wo.ad, "ad", "", "simulate an ad outcome: reward, dismiss, fail, load_error, none")
	return cmd
}

func runWrite(ctx context.Context, cmd *cobra.Command, a *app, wo *writeOptions) error {
	if wo.date != "" {
		if _, err := resolver.ParseDateKey(wo.date); err != nil {
			return err
		}
	}

	body, err := readBody(cmd.InOrStdin(), wo.file)
	if err != nil {
		return err
	}

	gate, err := newAdGate(ctx, a, wo.ad)
	if err != nil {
		return err
	}
	defer gate.Close()

	logger := a.logger.Named("submission").Underlying()
	orch := submission.New(a.diary,
		submission.WithAdGate(gate),
		submission.WithLogger(logger),
		submission.WithTracerProvider(a.tel.TracerProvider()),
	)

	out := cmd.OutOrStdout()
	orch.OnTransition(func(tr submission.Transition) {
		switch tr.To {
		case submission.StateAwaitingAd:
			fmt.Fprintln(out, "Showing ad...")
		case submission.StateCreatingEntry:
			fmt.Fprintln(out, "Saving entry...")
		case submission.StateRequestingAnalysis:
			fmt.Fprintln(out, "Requesting analysis...")
		}
	})

	res := orch.Submit(ctx, submission.Draft{
		Title:   wo.title,
		Body:    body,
		Mood:    diary.Mood(wo.mood),
		Weather: diary.Weather(wo.weather),
		Date:    wo.date,
	})
	return reportSubmission(out, res)
}

func readBody(stdin io.Reader, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "" || file == "-" {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", file, err)
		}
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// newAdGate builds and loads the gate. override replaces ads.simulate;
// "none" disables ads.
func newAdGate(ctx context.Context, a *app, override string) (*adgate.Gate, error) {
	mode := a.cfg.Ads.Simulate
	switch override {
	case "":
	case "none":
		mode = adgate.SimulateNone
	default:
		mode = override
	}
	sdk, err := adgate.Simulated(mode)
	if err != nil {
		return nil, err
	}

	gate := adgate.New(sdk, a.cfg.Ads.Placement, a.logger.Named("ads").Underlying())
	gate.Load(ctx)

	loadCtx, cancel := context.WithTimeout(ctx, adLoadTimeout)
	defer cancel()
	state := gate.AwaitLoad(loadCtx)
	a.logger.Debug(ctx, "ad gate ready", zap.String("state", string(state)), zap.String("mode", mode))
	return gate, nil
}

var errSubmissionFailed = errors.New("submission failed")

func reportSubmission(out io.Writer, res submission.Result) error {
	switch {
	case res.Busy:
		return fmt.Errorf("%w: another submission is in progress", errSubmissionFailed)
	case res.Succeeded():
		fmt.Fprintf(out, "Entry %d saved and analyzed.\nView it with: daybook show %d\n", res.EntryID, res.EntryID)
		return nil
	case res.Cancelled:
		fmt.Fprintln(out, "Cancelled.")
		return context.Canceled
	}

	switch res.Reason {
	case submission.ReasonInvalid:
		fmt.Fprintln(out, "The entry needs changes:")
		for _, line := range strings.Split(res.Message, "\n") {
			fmt.Fprintln(out, "  - "+line)
		}
	case submission.ReasonAnalysisError:
		fmt.Fprintf(out, "Entry %d was saved, but analysis could not be requested: %s\n", res.EntryID, res.Message)
		fmt.Fprintf(out, "View it anyway with: daybook show %d\n", res.EntryID)
	default:
		fmt.Fprintln(out, res.Message)
	}
	return fmt.Errorf("%w: %s", errSubmissionFailed, res.Reason)
}
