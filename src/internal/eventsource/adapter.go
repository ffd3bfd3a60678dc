// Package eventsource turns the messages a browser extension sends over
// native messaging into tracker events.
package eventsource

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"smart-time-tracker/src/internal/tracker"

	"github.com/sirupsen/logrus"
)

const (
	TypeTabActivated = "tab_activated"
	TypeTabUpdated   = "tab_updated"
	TypeTabRemoved   = "tab_removed"
	TypeIdleState    = "idle_state"
	TypeSetUserID    = "set_user_id"
)

// Message is a browser-to-host message.
type Message struct {
	Type   string `json:"type"`
	TabID  int    `json:"tab_id,omitempty"`
	URL    string `json:"url,omitempty"`
	State  string `json:"state,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// Reply answers messages that expect one.
type Reply struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// UserIDSink stores a legacy user id announced by the dashboard page.
type UserIDSink func(ctx context.Context, userID string) error

type Adapter struct {
	tabs      *TabRegistry
	events    chan<- tracker.Event
	setUserID UserIDSink
	minUserID int

	outMu sync.Mutex
	out   io.Writer
}

func NewAdapter(tabs *TabRegistry, events chan<- tracker.Event, out io.Writer, setUserID UserIDSink, minUserID int) *Adapter {
	return &Adapter{
		tabs:      tabs,
		events:    events,
		setUserID: setUserID,
		minUserID: minUserID,
		out:       out,
	}
}

// Run reads frames from r until EOF or ctx is done. Malformed messages are
// logged and skipped; a broken frame ends the stream.
func (a *Adapter) Run(ctx context.Context, r io.Reader) error {
	for {
		frame, err := ReadMessage(r)
		if errors.Is(err, io.EOF) {
			logrus.Info("Browser closed the native messaging pipe")
			return nil
		}
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			logrus.WithError(err).Warn("Skipping malformed native message")
			continue
		}

		if err := a.dispatch(ctx, &msg); err != nil {
			return err
		}
	}
}

func (a *Adapter) dispatch(ctx context.Context, msg *Message) error {
	switch msg.Type {
	case TypeTabActivated:
		a.tabs.Activate(msg.TabID, msg.URL)
		return a.emit(ctx, tracker.TabChanged(msg.TabID))

	case TypeTabUpdated:
		// URL changes of background tabs do not move tracking.
		if a.tabs.Update(msg.TabID, msg.URL) && a.tabs.IsActive(msg.TabID) {
			return a.emit(ctx, tracker.TabChanged(msg.TabID))
		}

	case TypeTabRemoved:
		a.tabs.Remove(msg.TabID)

	case TypeIdleState:
		state := tracker.IdleState(strings.ToLower(msg.State))
		switch state {
		case tracker.IdleActive, tracker.IdleIdle, tracker.IdleLocked:
			return a.emit(ctx, tracker.IdleChanged(state))
		default:
			logrus.WithField("state", msg.State).Warn("Unknown idle state")
		}

	case TypeSetUserID:
		a.reply(a.handleSetUserID(ctx, msg.UserID))

	default:
		logrus.WithField("type", msg.Type).Debug("Ignoring native message")
	}
	return nil
}

func (a *Adapter) handleSetUserID(ctx context.Context, userID string) Reply {
	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) < a.minUserID {
		return Reply{Type: TypeSetUserID, Error: "Invalid user_id"}
	}
	if err := a.setUserID(ctx, userID); err != nil {
		logrus.WithError(err).Error("Failed to store user id")
		return Reply{Type: TypeSetUserID, Error: "Failed to store user_id"}
	}
	logrus.WithField("user_id", userID).Info("User ID updated")
	return Reply{Type: TypeSetUserID, Success: true}
}

func (a *Adapter) emit(ctx context.Context, ev tracker.Event) error {
	select {
	case a.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) reply(r Reply) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	if err := WriteMessage(a.out, r); err != nil {
		logrus.WithError(err).WithField("type", r.Type).Warn("Failed to answer native message")
	}
}
