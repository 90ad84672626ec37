package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/apierrors"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/fyrsmithlabs/daybook/internal/homefeed"
	"github.com/fyrsmithlabs/daybook/internal/resolver"
	"github.com/spf13/cobra"
)

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open [date]",
		Short: "Find the entry for a date",
		Long: `Look up the entry for a date (default today). Prints where to go next:
the entry itself, or the write screen for that date. A failed lookup is
treated as "no entry yet".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			key := resolver.DateKey(time.Now())
			if len(args) == 1 {
				key = args[0]
			}

			d := resolver.New(a.diary, a.logger.Named("resolver").Underlying()).Resolve(ctx, key)
			out := cmd.OutOrStdout()
			if d.Exists {
				fmt.Fprintf(out, "Entry %d exists for %s.\nView it with: daybook show %d\n", d.EntryID, key, d.EntryID)
				return nil
			}
			if d.FailedOpen {
				fmt.Fprintln(out, "Could not check for an existing entry.")
			}
			if d.DateKey == "" {
				fmt.Fprintln(out, "Write a new entry with: daybook write")
				return nil
			}
			fmt.Fprintf(out, "No entry for %s yet.\nWrite one with: daybook write --date %s\n", d.DateKey, d.DateKey)
			return nil
		}),
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show an entry and its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			entry, err := a.diary.GetEntry(ctx, id)
			if err != nil {
				return fmt.Errorf("%s", apierrors.Normalize(err))
			}
			printEntry(cmd.OutOrStdout(), entry)
			return nil
		}),
	}
}

func printEntry(out io.Writer, e *diary.Entry) {
	title := e.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(out, "#%d %s\n", e.ID, title)
	if e.Meta != nil {
		fmt.Fprintf(out, "Mood: %s  Weather: %s\n", e.Meta.Mood, e.Meta.Weather)
	}
	fmt.Fprintf(out, "\n%s\n", e.OriginalText)

	if !e.Analyzed() {
		fmt.Fprintln(out, "\nAnalysis is not available yet.")
		return
	}
	an := e.Analysis
	if an.Translation != nil && an.Translation.Text != "" {
		fmt.Fprintf(out, "\nTranslation (%s):\n%s\n", an.Translation.To, an.Translation.Text)
	}
	if an.Corrections != nil && an.Corrections.Corrected != "" {
		fmt.Fprintf(out, "\nCorrected:\n%s\n", an.Corrections.Corrected)
		for _, ex := range an.Corrections.Explanations {
			fmt.Fprintf(out, "  - %s\n", ex)
		}
	}
	if len(an.VocabSuggestions) > 0 {
		fmt.Fprintln(out, "\nVocabulary:")
		for _, v := range an.VocabSuggestions {
			line := "  " + v.Word
			if v.MeaningKo != "" {
				line += " (" + v.MeaningKo + ")"
			}
			fmt.Fprintln(out, line)
		}
	}
	if an.Score != nil {
		fmt.Fprintf(out, "\nScore: %.1f\n", *an.Score)
	}
}

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar [YYYY-MM]",
		Short: "List the days with entries in a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			month := resolver.MonthKey(time.Now())
			if len(args) == 1 {
				if _, err := time.Parse("2006-01", args[0]); err != nil {
					return fmt.Errorf("invalid month %q, want YYYY-MM", args[0])
				}
				month = args[0]
			}

			feed := homefeed.NewCalendarFeed(a.diary, a.logger.Named("calendar").Underlying())
			defer feed.Close()
			days, _ := feed.Load(ctx, month)

			out := cmd.OutOrStdout()
			keys := make([]string, 0, len(days))
			for k, n := range days {
				if n > 0 {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s  %d\n", k, days[k])
			}
			fmt.Fprintf(out, "%d day(s) with entries in %s\n", feed.CountInMonth(), month)
			return nil
		}),
	}
}

func newQuotesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quotes",
		Short: "Show quotes of the day",
		Args:  cobra.NoArgs,
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			feed := homefeed.NewQuoteFeed(a.diary, a.logger.Named("quotes").Underlying())
			defer feed.Close()
			feed.Load(ctx)

			out := cmd.OutOrStdout()
			for _, q := range feed.Quotes() {
				fmt.Fprintf(out, "%s\n  %s\n", q.En, q.Ko)
			}
			return nil
		}),
	}
}
