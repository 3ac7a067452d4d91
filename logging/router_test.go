package logging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
	closed bool
}

func (s *recordingSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("boom")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestRouterDeliversFilteredEventsOnClose(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.Severity = "warn"
	cfg.Fields = map[string]any{"run": "abc"}
	sink := &recordingSink{}
	router, err := NewRouter(ClockFunc(func() time.Time { return fixed }), cfg, []NamedSink{{Name: "rec", Sink: sink}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	router.Publish(context.Background(), Event{Type: "debug.skip", Severity: SeverityDebug})
	router.Publish(context.Background(), Event{Type: "warn.keep", Severity: SeverityWarn, Extra: map[string]any{"run": "override"}})
	router.Publish(context.Background(), Event{Severity: SeverityError})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != "warn.keep" {
		t.Fatalf("unexpected event %s", events[0].Type)
	}
	if !events[0].Time.Equal(fixed) {
		t.Fatalf("expected clock time to be stamped, got %s", events[0].Time)
	}
	if events[0].Extra["run"] != "override" {
		t.Fatalf("expected event field to win over router default")
	}
	if !sink.closed {
		t.Fatalf("expected sink to be closed")
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected one routed event, got %+v", stats)
	}

	router.Publish(context.Background(), Event{Type: "late", Severity: SeverityError})
	if router.Stats().EventsTotal != 1 {
		t.Fatalf("expected events after close to be ignored")
	}
}

func TestRouterRejectsUnknownSeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Severity = "loud"
	if _, err := NewRouter(nil, cfg, nil); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestRouterCountsSinkFailures(t *testing.T) {
	sink := &recordingSink{fail: true}
	router, err := NewRouter(nil, DefaultConfig(), []NamedSink{{Name: "broken", Sink: sink}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	router.Publish(context.Background(), Event{Type: "x", Severity: SeverityInfo})

	deadline := time.Now().Add(time.Second)
	for router.Stats().SinkFailures["broken"] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected sink failure to be counted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestWithFieldsAndFanout(t *testing.T) {
	var got []Event
	base := PublisherFunc(func(_ context.Context, e Event) { got = append(got, e) })
	pub := Fanout(WithFields(base, map[string]any{"session": "s1"}), nil, base)
	pub.Publish(context.Background(), Event{Type: "t"})

	if len(got) != 2 {
		t.Fatalf("expected fan-out to two publishers, got %d", len(got))
	}
	if got[0].Extra["session"] != "s1" {
		t.Fatalf("expected decorated field, got %+v", got[0].Extra)
	}
	if got[1].Extra != nil {
		t.Fatalf("expected plain publisher to see undecorated event")
	}
	if _, ok := WithFields(nil, nil).(nopPublisher); !ok {
		t.Fatalf("expected nil publisher to become a no-op")
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{"": SeverityInfo, "DEBUG": SeverityDebug, "warning": SeverityWarn, "error": SeverityError}
	for in, want := range cases {
		got, err := ParseSeverity(in)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
