package game

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// EventType labels an outbound notification.
type EventType string

const (
	EventSessionCreated   EventType = "session.created"
	EventPlayerJoined     EventType = "player.joined"
	EventPlayerLeft       EventType = "player.left"
	EventSessionStarted   EventType = "session.started"
	EventActionAccepted   EventType = "action.accepted"
	EventPhaseAdvanced    EventType = "phase.advanced"
	EventPlayerEliminated EventType = "player.eliminated"
	EventSessionFinished  EventType = "session.finished"
	EventSessionCancelled EventType = "session.cancelled"
)

// Event is the structured notification emitted on every accepted state
// change. A transport collaborator broadcasts these to connected clients;
// the engine itself performs no network I/O.
type Event struct {
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier receives outbound events. Implementations must be safe for
// concurrent use; slow notifiers only cost dropped events, never a
// blocked write path.
type Notifier interface {
	Notify(Event)
}

// LogNotifier writes events to the process log. It is the default when no
// transport collaborator is wired in.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(e Event) {
	log.Printf("event session_id=%s type=%s", e.SessionID, e.Type)
}

// dispatcher fans events out to a Notifier through a bounded queue.
// Publishing never blocks: when the queue is full the event is dropped
// and counted, which keeps a stalled transport from backing up into the
// session write path.
type dispatcher struct {
	notifier Notifier
	queue    chan Event
	dropped  atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newDispatcher(n Notifier, capacity int) *dispatcher {
	if capacity <= 0 {
		capacity = 256
	}
	d := &dispatcher{
		notifier: n,
		queue:    make(chan Event, capacity),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case e := <-d.queue:
			d.notifier.Notify(e)
		case <-d.stop:
			// Drain what is already queued, then exit.
			for {
				select {
				case e := <-d.queue:
					d.notifier.Notify(e)
				default:
					return
				}
			}
		}
	}
}

// publish enqueues an event without blocking.
func (d *dispatcher) publish(e Event) {
	select {
	case d.queue <- e:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded due to backpressure.
func (d *dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *dispatcher) close() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}
