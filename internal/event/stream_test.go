package event

import (
	"context"
	"testing"
	"time"
)

func TestStream_FIFOOrder(t *testing.T) {
	s := NewStream(8)
	ctx := context.Background()

	s.Publish(ctx, Event{Type: Info, Message: "one"})
	s.Publish(ctx, Event{Type: Progress, Message: "two"})
	s.Publish(ctx, Event{Type: Done, Message: "three"})

	var got []string
	for ev := range s.Events() {
		got = append(got, ev.Message)
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestStream_NoEventsAfterTerminal(t *testing.T) {
	s := NewStream(8)
	ctx := context.Background()

	if !s.Publish(ctx, Event{Type: Done, Message: "done"}) {
		t.Fatal("terminal publish should succeed")
	}
	if s.Publish(ctx, Event{Type: Info, Message: "late"}) {
		t.Error("publish after terminal should report closed")
	}

	var count int
	for range s.Events() {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly 1 delivered event, got %d", count)
	}
}

func TestStream_FatalErrorIsTerminal(t *testing.T) {
	s := NewStream(1)
	ctx := context.Background()

	s.Publish(ctx, Event{Type: Error, Message: "clone failed", Fatal: true})
	if s.Publish(ctx, Event{Type: Done}) {
		t.Error("publish after fatal error should report closed")
	}
}

func TestStream_NonFatalErrorIsNotTerminal(t *testing.T) {
	if (Event{Type: Error, Message: "push failed"}).Terminal() {
		t.Error("sub-stage error must not be terminal")
	}
	if !(Event{Type: Done}).Terminal() {
		t.Error("done must be terminal")
	}
}

func TestStream_PublishFailsAfterCancel(t *testing.T) {
	s := NewStream(0) // unbuffered: publish blocks until consumed
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan bool)
	go func() {
		done <- s.Publish(ctx, Event{Type: Info, Message: "stuck"})
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("publish to cancelled context should fail")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publish did not return after cancellation")
	}

	// Stream must be closed so the producer's abort path terminates.
	if _, open := <-s.Events(); open {
		t.Error("stream should be closed after cancelled publish")
	}
}

func TestStream_AbortIsIdempotent(t *testing.T) {
	s := NewStream(1)
	s.Abort()
	s.Abort()
	if s.Publish(context.Background(), Event{Type: Info}) {
		t.Error("publish after abort should fail")
	}
}
