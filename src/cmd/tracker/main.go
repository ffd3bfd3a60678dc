package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/localstore"
	"smart-time-tracker/src/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var log = logrus.StandardLogger()

const usage = `Usage: tracker [flags] <command> [args]

Commands:
  run              track activity from native messages on stdin (default)
  pair <code>      exchange a pairing code for an extension token
  set-user <id>    store a user id for legacy uploads
  logout           forget the token and user id
  status           show the session slot, queue and credentials
  stats            show the top domains stored on the collector

Flags:
`

type options struct {
	configPath string
	statePath  string
	serverURL  string
}

func main() {
	flags := pflag.NewFlagSet("tracker", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}

	var opts options
	flags.StringVarP(&opts.configPath, "config", "c", config.Path(), "path to the configuration file")
	flags.StringVar(&opts.statePath, "state", "", "path to the local state database (overrides tracker.state-path)")
	flags.StringVar(&opts.serverURL, "server", "", "collector base URL (overrides tracker.server-url)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracker: %v\n", err)
		os.Exit(1)
	}
	if opts.statePath != "" {
		cfg.Tracker.StatePath = opts.statePath
	}
	if opts.serverURL != "" {
		cfg.Tracker.ServerUrl = opts.serverURL
	}

	// stdout carries native messaging replies.
	logger.InitWithOutput(&cfg.Logs, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := "run"
	args := flags.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	if err := dispatch(ctx, cfg, command, args); err != nil {
		log.WithError(err).WithField("command", command).Error("Command failed")
		stop()
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cfg *config.Configuration, command string, args []string) error {
	var handler func(context.Context, *config.Configuration, *localstore.Store, []string) error
	switch command {
	case "run":
		handler = runTracker
	case "pair":
		handler = pairCommand
	case "set-user":
		handler = setUserCommand
	case "logout":
		handler = logoutCommand
	case "status":
		handler = statusCommand
	case "stats":
		handler = statsCommand
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	store, err := localstore.Open(ctx, cfg.Tracker.StatePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("Failed to close local state")
		}
	}()

	return handler(ctx, cfg, store, args)
}
