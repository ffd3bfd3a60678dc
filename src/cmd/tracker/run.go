package main

import (
	"context"
	"errors"
	"os"
	"time"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/eventsource"
	"smart-time-tracker/src/internal/localstore"
	"smart-time-tracker/src/internal/models"
	"smart-time-tracker/src/internal/syncer"
	"smart-time-tracker/src/internal/tracker"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
)

const finalSyncTimeout = 5 * time.Second

// runTracker wires the event source, session tracker and sync engine. It
// returns when stdin closes or a signal arrives, after a last upload attempt.
func runTracker(ctx context.Context, cfg *config.Configuration, store *localstore.Store, _ []string) error {
	clock := quartz.NewReal()
	client := clients.NewCollectorClient(&cfg.Tracker)
	engine := syncer.NewEngine(store, store, client, &cfg.Tracker, clock)

	tabs := eventsource.NewTabRegistry()
	events := make(chan tracker.Event, 64)

	tr := tracker.New(store, tabs, clock,
		tracker.WithMinSession(cfg.Tracker.MinSession),
		tracker.WithOnCommit(func(models.LogRecord) { engine.Trigger() }),
	)
	if err := tr.Recover(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapter := eventsource.NewAdapter(tabs, events, os.Stdout, store.SetUserID, cfg.Tracker.MinUserIDLength)
	// Reads from stdin cannot be interrupted, so the adapter stays outside the group.
	go func() {
		defer cancel()
		if err := adapter.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Event source stopped")
			return
		}
		log.Info("Event source closed")
	}()

	// The sync loop outlives the tracker so the final close can still be uploaded.
	syncCtx, stopSync := context.WithCancel(context.WithoutCancel(ctx))
	defer stopSync()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stopSync()
		return ignoreCanceled(tr.Run(gctx, events))
	})
	g.Go(func() error {
		return ignoreCanceled(engine.Run(syncCtx))
	})

	log.Info("Tracker started")
	err := g.Wait()

	flushCtx, cancelFlush := context.WithTimeout(context.WithoutCancel(ctx), finalSyncTimeout)
	defer cancelFlush()
	result, syncErr := engine.SyncOnce(flushCtx)
	if syncErr != nil {
		log.WithError(syncErr).Warn("Final sync failed, records stay queued")
	} else {
		log.WithField("result", result.String()).Info("Final sync finished")
	}

	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
