package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/localstore"
	"smart-time-tracker/src/internal/report"

	"github.com/spf13/pflag"
)

const topDomains = 3

func pairCommand(ctx context.Context, cfg *config.Configuration, store *localstore.Store, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: tracker pair <code>")
	}

	client := clients.NewCollectorClient(&cfg.Tracker)
	result, err := client.FinishPairing(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("pairing failed: %w", err)
	}

	if err := store.SetToken(ctx, result.ExtensionToken); err != nil {
		return err
	}
	if err := store.SetUserID(ctx, result.UserID); err != nil {
		return err
	}

	expires := time.Duration(result.TokenExpiresInSeconds) * time.Second
	fmt.Fprintf(os.Stdout, "Paired as %s, token valid for %s\n", result.UserID, expires)
	return nil
}

func setUserCommand(ctx context.Context, cfg *config.Configuration, store *localstore.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: tracker set-user <id>")
	}
	userID := strings.TrimSpace(args[0])
	if len(userID) < cfg.Tracker.MinUserIDLength {
		return fmt.Errorf("user id must be at least %d characters", cfg.Tracker.MinUserIDLength)
	}
	return store.SetUserID(ctx, userID)
}

func logoutCommand(ctx context.Context, _ *config.Configuration, store *localstore.Store, _ []string) error {
	if err := store.ClearCredentials(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "Credentials cleared")
	return nil
}

func statusCommand(ctx context.Context, _ *config.Configuration, store *localstore.Store, _ []string) error {
	session, err := store.LoadSession(ctx)
	if err != nil {
		return err
	}
	queued, err := store.Len(ctx)
	if err != nil {
		return err
	}
	creds, err := store.Credentials(ctx)
	if err != nil {
		return err
	}

	if session != nil {
		fmt.Fprintf(os.Stdout, "session:  %s since %s\n", session.Domain, session.StartTime.Format(time.RFC3339))
	} else {
		fmt.Fprintln(os.Stdout, "session:  none")
	}
	fmt.Fprintf(os.Stdout, "queued:   %d\n", queued)
	fmt.Fprintf(os.Stdout, "token:    %s\n", mask(creds.Token))
	fmt.Fprintf(os.Stdout, "user id:  %s\n", orNone(creds.UserID))
	return nil
}

func statsCommand(ctx context.Context, cfg *config.Configuration, store *localstore.Store, args []string) error {
	flags := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	since := flags.String("since", "", "only count records created on or after this day (YYYY-MM-DD)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var from time.Time
	if *since != "" {
		parsed, err := time.Parse(time.DateOnly, *since)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		from = parsed
	}

	creds, err := store.Credentials(ctx)
	if err != nil {
		return err
	}
	if creds.UserID == "" {
		return errors.New("no user id stored, pair or run set-user first")
	}

	client := clients.NewCollectorClient(&cfg.Tracker)
	logs, err := client.GetLogs(ctx, creds.UserID, from)
	if err != nil {
		return err
	}

	totals := report.TopDomains(logs, topDomains)
	if len(totals) == 0 {
		fmt.Fprintln(os.Stdout, "No activity recorded yet")
		return nil
	}
	for _, t := range totals {
		fmt.Fprintf(os.Stdout, "%-32s %6s %3d%%\n", t.Domain, report.FormatDuration(t.Seconds), t.Percent)
	}
	return nil
}

func mask(token string) string {
	if token == "" {
		return "none"
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
