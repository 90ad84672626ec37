package main

import (
	"context"

	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "daybook",
		Short: "Write and review daily English journal entries",
		Long: `daybook is a command-line client for the daybook journal service.
It logs in, submits entries for analysis, and browses entries by date.

Configuration is read from ~/.config/daybook/config.yaml and DAYBOOK_*
environment variables; flags override both.`,
		Version:       version + " (" + gitCommit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/daybook/config.yaml)")
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "API base URL, overrides api.base_url")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newStatusCmd(opts),
		newWriteCmd(opts),
		newOpenCmd(opts),
		newShowCmd(opts),
		newCalendarCmd(opts),
		newQuotesCmd(opts),
		newDevServerCmd(opts),
	)
	return root
}

// runWithApp builds the app for one command invocation and closes it after.
func runWithApp(opts *rootOptions, fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithCommand(cmd.Context(), cmd.Name())
		a, err := newApp(ctx, opts)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil {
				a.logger.Debug(ctx, "shutdown", zap.Error(cerr))
			}
		}()
		return fn(logging.WithLogger(ctx, a.logger), cmd, a, args)
	}
}
