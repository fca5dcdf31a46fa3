package event

import (
	"context"
	"sync"
)

// Stream is an ordered, append-only event sequence with exactly one
// consumer. Events are delivered FIFO; after a terminal event (or Abort)
// the channel is closed and further publishes are dropped.
type Stream struct {
	ch chan Event

	mu     sync.Mutex
	closed bool
}

// NewStream creates a Stream with the given buffer size.
func NewStream(buffer int) *Stream {
	return &Stream{ch: make(chan Event, buffer)}
}

// Events returns the consumer side of the stream. It is closed after the
// terminal event has been delivered, or on Abort.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Publish appends an event to the stream. It returns false without
// delivering when the stream is already closed or ctx is done — the
// producer should treat false as an abort signal, stop advancing, and run
// its cleanup. Publishing a terminal event closes the stream.
func (s *Stream) Publish(ctx context.Context, ev Event) bool {
	if ctx.Err() != nil {
		s.Abort()
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if ev.Terminal() {
		s.closed = true
		defer close(s.ch)
	}
	s.mu.Unlock()

	select {
	case s.ch <- ev:
		return true
	case <-ctx.Done():
		// Consumer is gone. If we reserved the close above it still runs.
		if !ev.Terminal() {
			s.Abort()
		}
		return false
	}
}

// Abort closes the stream without a terminal event, for cancelled runs
// whose consumer has already disconnected. Safe to call more than once.
func (s *Stream) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
