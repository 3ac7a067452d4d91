package telemetry

import (
	"bytes"
	"log"
	"testing"
	"time"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WrapLogger(log.New(&buf, "", 0))
		logger.Printf("hello %s", "colony")
		if got := buf.String(); got != "hello colony\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
	})

	t.Run("nil func", func(t *testing.T) {
		var f LoggerFunc
		f.Printf("ignored")
	})
}

func TestRegistryAddAndStore(t *testing.T) {
	reg := NewRegistry()
	reg.Add("commands_total", 2)
	reg.Store("commands_total", 5)
	reg.Add("commands_total", 3)
	reg.Store("queue_depth", 4)

	if got := reg.Value("commands_total"); got != 8 {
		t.Fatalf("unexpected metric value: %d", got)
	}
	keys := reg.Keys()
	if len(keys) != 2 || keys[0] != "commands_total" || keys[1] != "queue_depth" {
		t.Fatalf("unexpected keys %v", keys)
	}

	var nilReg *Registry
	nilReg.Add("ignored", 1)
	nilReg.Store("ignored", 1)
	if nilReg.Snapshot() != nil {
		t.Fatalf("nil registry should snapshot to nil")
	}
}

func TestCountersSnapshot(t *testing.T) {
	c := NewCounters()
	c.RecordBroadcast(100, 3)
	c.RecordBroadcast(40, 2)
	c.RecordTickDuration(1500 * time.Microsecond)
	c.IncrementOverrun()
	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()

	snap := c.Snapshot()
	if snap.BytesSent != 380 || snap.SnapshotsSent != 5 || snap.LastBroadcastBytes != 40 {
		t.Fatalf("unexpected broadcast counters %+v", snap)
	}
	if snap.TickDurationMicros != 1500 || snap.TickOverruns != 1 {
		t.Fatalf("unexpected tick counters %+v", snap)
	}
	if snap.ActiveSessions != 1 {
		t.Fatalf("expected 1 active session, got %d", snap.ActiveSessions)
	}
}
