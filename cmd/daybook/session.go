package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/daybook/internal/apierrors"
	"github.com/fyrsmithlabs/daybook/internal/session"
	"github.com/spf13/cobra"
)

func newSession(a *app) *session.Manager {
	return session.New(a.diary, a.store, a.logger.Named("session").Underlying())
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var referrer string
	cmd := &cobra.Command{
		Use:   "login <authorization-code>",
		Short: "Exchange an authorization code for a session",
		Long: `Exchange an authorization code for an app token and store it.

Examples:
  # Log in
  daybook login 3f2a9c

  # Log in against the local dev server
  daybook login --api http://127.0.0.1:8000/api dev`,
		Args: cobra.ExactArgs(1),
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			cred, err := newSession(a).Login(ctx, args[0], referrer)
			if err != nil {
				return fmt.Errorf("login failed: %s", apierrors.Normalize(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			if cred.UserKey != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "User key stored.")
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&referrer, "referrer", "DEFAULT", "login referrer reported to the server")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := newSession(a).Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		}),
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and configuration status",
		Args:  cobra.NoArgs,
		RunE: runWithApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			st, err := newSession(a).Status(ctx)
			authenticated := "no"
			switch {
			case err != nil:
				authenticated = "unknown (" + err.Error() + ")"
			case st.Authenticated:
				authenticated = "yes"
			}
			fmt.Fprintf(out, "API:            %s\n", a.cfg.API.BaseURL)
			fmt.Fprintf(out, "Credentials:    %s\n", a.cfg.Credentials.Backend)
			fmt.Fprintf(out, "Authenticated:  %s\n", authenticated)
			fmt.Fprintf(out, "User key:       %s\n", yesNo(st.HasUserKey))
			fmt.Fprintf(out, "Ads:            %s\n", adsMode(a.cfg.Ads.Simulate))
			if h := a.tel.Health(); h.Enabled {
				fmt.Fprintf(out, "Telemetry:      %s (degraded: %s)\n", a.cfg.Telemetry.Endpoint, yesNo(h.Degraded))
			}
			return nil
		}),
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func adsMode(simulate string) string {
	if simulate == "" {
		return "unsupported"
	}
	return "simulated (" + simulate + ")"
}
