// Package syncer uploads the tracker's queued records to the collector.
//
// Each attempt sends the whole queue as one batch. The batch is removed from
// the queue only after the collector acknowledges it; on any failure it is
// kept and retried on the next tick. Attempts never overlap.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/localstore"
	"smart-time-tracker/src/internal/models"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"
)

type Queue interface {
	Snapshot(ctx context.Context) (*localstore.Batch, error)
	ClearThrough(ctx context.Context, seq int64) (int64, error)
}

type CredentialSource interface {
	Credentials(ctx context.Context) (localstore.Credentials, error)
}

type Uploader interface {
	PostLogs(ctx context.Context, batch *clients.LogBatch, token string) error
}

// Result describes what a sync attempt did.
type Result int

const (
	ResultBusy Result = iota + 1
	ResultEmpty
	ResultNoCredentials
	ResultRetained
	ResultFlushed
)

func (r Result) String() string {
	switch r {
	case ResultBusy:
		return "busy"
	case ResultEmpty:
		return "empty"
	case ResultNoCredentials:
		return "no_credentials"
	case ResultRetained:
		return "retained"
	case ResultFlushed:
		return "flushed"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

type Engine struct {
	queue     Queue
	creds     CredentialSource
	uploader  Uploader
	clock     quartz.Clock
	interval  time.Duration
	minToken  int
	minUserID int

	inFlight atomic.Bool
	trigger  chan struct{}
	wg       sync.WaitGroup
}

func NewEngine(queue Queue, creds CredentialSource, uploader Uploader, cfg *config.TrackerConfig, clock quartz.Clock) *Engine {
	return &Engine{
		queue:     queue,
		creds:     creds,
		uploader:  uploader,
		clock:     clock,
		interval:  cfg.SyncInterval,
		minToken:  cfg.MinTokenLength,
		minUserID: cfg.MinUserIDLength,
		trigger:   make(chan struct{}, 1),
	}
}

// SyncOnce makes one upload attempt. It returns ResultBusy without doing
// anything if another attempt is in flight.
func (e *Engine) SyncOnce(ctx context.Context) (Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return ResultBusy, nil
	}
	defer e.inFlight.Store(false)

	batch, err := e.queue.Snapshot(ctx)
	if err != nil {
		return ResultRetained, err
	}
	if len(batch.Records) == 0 {
		return ResultEmpty, nil
	}

	creds, err := e.creds.Credentials(ctx)
	if err != nil {
		return ResultRetained, err
	}
	body, token, err := e.buildRequest(batch, creds)
	if err != nil {
		return ResultNoCredentials, nil
	}

	if err := e.uploader.PostLogs(ctx, body, token); err != nil {
		return ResultRetained, err
	}

	cleared, err := e.queue.ClearThrough(ctx, batch.Through)
	if err != nil {
		// The batch was accepted; it will be sent again on the next tick.
		return ResultRetained, err
	}

	logrus.WithFields(logrus.Fields{
		"records": len(batch.Records),
		"cleared": cleared,
		"auth":    authMode(token),
	}).Info("Synced activity logs")

	return ResultFlushed, nil
}

// buildRequest picks the identity for a batch: a well-formed token in the
// Authorization header, else the legacy user id in the body. Never both.
func (e *Engine) buildRequest(batch *localstore.Batch, creds localstore.Credentials) (*clients.LogBatch, string, error) {
	body := &clients.LogBatch{Logs: batch.Records}

	if token := strings.TrimSpace(creds.Token); token != "" && len(token) >= e.minToken {
		return body, token, nil
	}
	if userID := strings.TrimSpace(creds.UserID); userID != "" && len(userID) >= e.minUserID {
		body.UserID = userID
		return body, "", nil
	}
	return nil, "", models.ErrNoCredentials
}

func authMode(token string) string {
	if token != "" {
		return "token"
	}
	return "legacy_user_id"
}

// Trigger asks Run for an attempt soon. Repeated triggers before Run reacts
// collapse into one.
func (e *Engine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Run attempts a sync every interval and on Trigger until ctx is done, then
// waits for an in-flight attempt to finish.
func (e *Engine) Run(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.interval, "syncer", "tick")
	defer ticker.Stop()
	defer e.wg.Wait()

	logrus.WithField("interval", e.interval.String()).Info("Sync engine started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.start(ctx, "timer")
		case <-e.trigger:
			e.start(ctx, "trigger")
		}
	}
}

func (e *Engine) start(ctx context.Context, reason string) {
	if e.inFlight.Load() {
		logrus.WithField("reason", reason).Debug("Sync already in flight, skipping")
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		result, err := e.SyncOnce(ctx)
		logger := logrus.WithFields(logrus.Fields{
			"reason": reason,
			"result": result.String(),
		})
		switch {
		case err != nil:
			logger.WithError(err).Warn("Sync failed, keeping queue for next attempt")
		case result == ResultNoCredentials:
			logger.Debug("No credentials yet, keeping queue")
		default:
			logger.Debug("Sync attempt finished")
		}
	}()
}
