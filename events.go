package bluefrog

import "github.com/Jutta-Proto/bluefrog-ble/catalog"

// EventKind tags the variant held by an Event.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventManufacturerData
	EventJoeChanged
	EventAbout
	EventAlertsChanged
	EventProductCounters
	EventMaintenanceCounters
	EventMaintenancePercents
	EventProductProgress
	EventRx
)

// Event is the tagged union dispatched on the Session's event channel.
// Only the field matching Kind is populated.
type Event struct {
	Kind EventKind

	State    SessionState
	ManData  ManufacturerRecord
	Joe      *catalog.Joe
	About    AboutRecord
	Alerts   []int
	Total    uint32
	ByCode   map[uint32]uint32
	Counters []uint32
	Raw      []byte
}

// eventBus is a small buffered fan-out: one producer (the session, from
// either the caller's goroutine or the heartbeat task), any number of
// consumers draining Events(). No pub/sub library in the pack fits a
// single in-process channel better than a channel.
type eventBus struct {
	ch chan Event
}

func newEventBus() *eventBus {
	return &eventBus{ch: make(chan Event, 32)}
}

func (b *eventBus) emit(e Event) {
	select {
	case b.ch <- e:
	default:
		// Consumer isn't keeping up; dropping rather than blocking a
		// protocol-critical goroutine (heartbeat, caller) on a full queue.
	}
}

// Events returns the channel new session events are published on.
func (b *eventBus) Events() <-chan Event {
	return b.ch
}
