package tui

import (
	"context"
	"sync"

	"github.com/verte-zerg/typetrack/internal/session"
)

// eventQueue carries machine events to the Bubble Tea loop. push never blocks, so the machine can
// publish from inside Update. Consecutive metrics events collapse into the newest one; every other
// event is kept in order.
type eventQueue struct {
	mu      sync.Mutex
	pending []session.Event
	ready   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev session.Event) {
	q.mu.Lock()
	n := len(q.pending)
	if ev.Kind == session.EventMetrics && n > 0 && q.pending[n-1].Kind == session.EventMetrics {
		q.pending[n-1] = ev
	} else {
		q.pending = append(q.pending, ev)
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// tryPop returns the oldest queued event without waiting.
func (q *eventQueue) tryPop() (session.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return session.Event{}, false
	}
	ev := q.pending[0]
	q.pending[0] = session.Event{}
	q.pending = q.pending[1:]
	return ev, true
}

// wait blocks until an event is queued or ctx is done.
func (q *eventQueue) wait(ctx context.Context) (session.Event, bool) {
	for {
		if ev, ok := q.tryPop(); ok {
			return ev, true
		}
		select {
		case <-ctx.Done():
			return session.Event{}, false
		case <-q.ready:
		}
	}
}

// size reports the number of queued events.
func (q *eventQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
