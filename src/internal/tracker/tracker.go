// Package tracker turns tab and idle signals into closed activity records.
//
// A Tracker is either idle or tracking exactly one domain. Its methods are not
// safe for concurrent use; Run feeds them from a single goroutine.
package tracker

import (
	"context"
	"fmt"
	"time"

	"smart-time-tracker/src/internal/models"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"
)

// TabResolver looks tabs up in the browser.
type TabResolver interface {
	TabURL(ctx context.Context, tabID int) (string, error)
	// ActiveTab returns the focused tab of the focused window.
	ActiveTab(ctx context.Context) (int, error)
}

// SessionSlot persists the active session. CommitSession must clear the slot
// and queue the record (if any) atomically.
type SessionSlot interface {
	LoadSession(ctx context.Context) (*models.Session, error)
	SaveSession(ctx context.Context, session models.Session) error
	CommitSession(ctx context.Context, rec *models.LogRecord) error
}

type Option func(*Tracker)

// WithMinSession sets the shortest session that produces a record.
func WithMinSession(d time.Duration) Option {
	return func(t *Tracker) { t.minSession = d }
}

// WithOnCommit registers a callback run after each queued record.
func WithOnCommit(fn func(models.LogRecord)) Option {
	return func(t *Tracker) { t.onCommit = fn }
}

type Tracker struct {
	slot       SessionSlot
	tabs       TabResolver
	clock      quartz.Clock
	minSession time.Duration
	onCommit   func(models.LogRecord)

	current *models.Session
}

func New(slot SessionSlot, tabs TabResolver, clock quartz.Clock, opts ...Option) *Tracker {
	t := &Tracker{
		slot:       slot,
		tabs:       tabs,
		clock:      clock,
		minSession: time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Current returns a copy of the active session, or nil when idle.
func (t *Tracker) Current() *models.Session {
	if t.current == nil {
		return nil
	}
	s := *t.current
	return &s
}

// Recover empties a slot left behind by a previous process. Its end time is
// unknown, so it is dropped rather than turned into a record.
func (t *Tracker) Recover(ctx context.Context) error {
	stale, err := t.slot.LoadSession(ctx)
	if err != nil {
		return err
	}
	if stale == nil {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"domain":     stale.Domain,
		"start_time": stale.StartTime,
	}).Warn("Discarding session left over from a previous run")
	return t.slot.CommitSession(ctx, nil)
}

// HandleTabChanged closes the current session and starts tracking tabID if
// it shows a trackable page.
func (t *Tracker) HandleTabChanged(ctx context.Context, tabID int) {
	if err := t.Close(ctx); err != nil {
		return
	}
	t.open(ctx, tabID)
}

// HandleIdleChanged closes the current session. On return to active the
// focused tab, if any, starts a new one.
func (t *Tracker) HandleIdleChanged(ctx context.Context, state IdleState) {
	if err := t.Close(ctx); err != nil {
		return
	}
	if state != IdleActive {
		return
	}

	tabID, err := t.tabs.ActiveTab(ctx)
	if err != nil {
		logrus.WithError(err).Debug("No focused tab after idle ended")
		return
	}
	t.open(ctx, tabID)
}

// Close ends the current session. Sessions shorter than the minimum are
// discarded; others are queued as one record. Closing while idle is a no-op.
// On a storage failure the session stays open and the error is returned.
func (t *Tracker) Close(ctx context.Context) error {
	if t.current == nil {
		return nil
	}

	now := t.clock.Now()
	var rec *models.LogRecord
	if now.Sub(t.current.StartTime) >= t.minSession {
		r := t.current.Close(now)
		rec = &r
	}

	if err := t.slot.CommitSession(ctx, rec); err != nil {
		logrus.WithError(err).WithField("domain", t.current.Domain).Error("Failed to close session")
		return fmt.Errorf("close session: %w", err)
	}

	logger := logrus.WithField("domain", t.current.Domain)
	t.current = nil

	if rec == nil {
		logger.Debug("Discarded short session")
		return nil
	}

	logger.WithField("duration", rec.Duration).Info("Session recorded")
	if t.onCommit != nil {
		t.onCommit(*rec)
	}
	return nil
}

func (t *Tracker) open(ctx context.Context, tabID int) {
	rawURL, err := t.tabs.TabURL(ctx, tabID)
	if err != nil {
		logrus.WithError(err).WithField("tab_id", tabID).Debug("Tab could not be resolved")
		return
	}

	domain, ok := DomainOf(rawURL)
	if !ok {
		logrus.WithField("tab_id", tabID).Debug("Tab is not trackable")
		return
	}

	session := models.Session{Domain: domain, StartTime: t.clock.Now()}
	if err := t.slot.SaveSession(ctx, session); err != nil {
		logrus.WithError(err).WithField("domain", domain).Error("Failed to persist session")
		return
	}
	t.current = &session

	logrus.WithField("domain", domain).Debug("Started tracking")
}

// Handle applies one event.
func (t *Tracker) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventTabChanged:
		t.HandleTabChanged(ctx, ev.TabID)
	case EventIdleChanged:
		t.HandleIdleChanged(ctx, ev.Idle)
	case EventClose:
		_ = t.Close(ctx)
	default:
		logrus.WithField("kind", ev.Kind).Warn("Ignoring unknown tracker event")
	}
}

// Run applies events in arrival order until ctx is done or events is closed,
// then closes the current session.
func (t *Tracker) Run(ctx context.Context, events <-chan Event) error {
	defer func() {
		// ctx may already be cancelled; the final close still has to land.
		_ = t.Close(context.WithoutCancel(ctx))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			t.Handle(ctx, ev)
		}
	}
}
