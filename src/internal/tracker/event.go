package tracker

import "fmt"

type EventKind int

const (
	EventTabChanged EventKind = iota + 1
	EventIdleChanged
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventTabChanged:
		return "tab_changed"
	case EventIdleChanged:
		return "idle_changed"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// IdleState mirrors the browser idle API states.
type IdleState string

const (
	IdleActive IdleState = "active"
	IdleIdle   IdleState = "idle"
	IdleLocked IdleState = "locked"
)

// Event is one normalized signal from the environment.
type Event struct {
	Kind  EventKind
	TabID int
	Idle  IdleState
}

func TabChanged(tabID int) Event {
	return Event{Kind: EventTabChanged, TabID: tabID}
}

func IdleChanged(state IdleState) Event {
	return Event{Kind: EventIdleChanged, Idle: state}
}
