package app

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GroggNorvek/RaSpider/internal/config"
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/sim"
	"github.com/GroggNorvek/RaSpider/internal/telemetry"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/construction"
	"github.com/GroggNorvek/RaSpider/logging/simulation"
)

func quietOptions() Options {
	cfg := config.Default()
	cfg.World.Prey.Enabled = false
	cfg.Logging.EnabledSinks = []string{logging.SinkConsole}
	return Options{Config: cfg, Logger: telemetry.LoggerFunc(nil), Stdout: io.Discard}
}

func TestSimulateBuildsWebFromCommand(t *testing.T) {
	drag := sim.Command{
		Type: sim.CommandDrag,
		Drag: &sim.DragCommand{Start: geometry.Vec2{X: 565, Y: 430}, End: geometry.Vec2{X: 565, Y: 300}},
	}
	report, err := Simulate(context.Background(), quietOptions(), 2000, []sim.Command{drag})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if report.Ticks != 2000 {
		t.Fatalf("expected 2000 ticks, got %d", report.Ticks)
	}
	if report.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if len(report.Snapshot.Webs) != 1 {
		t.Fatalf("expected one web in the final snapshot, got %d", len(report.Snapshot.Webs))
	}
	if report.Events[string(construction.EventOrderCreated)] != 1 {
		t.Fatalf("expected one order created event, got %v", report.Events)
	}
	if report.Events[string(construction.EventOrderCompleted)] != 1 {
		t.Fatalf("expected one order completed event, got %v", report.Events)
	}
	types := report.EventTypes()
	for i := 1; i < len(types); i++ {
		if types[i-1] > types[i] {
			t.Fatalf("event types not sorted: %v", types)
		}
	}
}

func TestSimulateReportsRejectedDrag(t *testing.T) {
	drag := sim.Command{
		Type: sim.CommandDrag,
		Drag: &sim.DragCommand{Start: geometry.Vec2{X: 5, Y: 790}, End: geometry.Vec2{X: 565, Y: 300}},
	}
	report, err := Simulate(context.Background(), quietOptions(), 3, []sim.Command{drag})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if report.Events[string(simulation.EventCommandRejected)] != 1 {
		t.Fatalf("expected a rejected command event, got %v", report.Events)
	}
	if len(report.Snapshot.Orders) != 0 {
		t.Fatalf("rejected drag produced an order")
	}
}

func TestSimulateRejectsBadSeverity(t *testing.T) {
	opts := quietOptions()
	opts.Config.Logging.Severity = "loud"
	if _, err := Simulate(context.Background(), opts, 1, nil); err == nil {
		t.Fatalf("expected invalid severity to fail")
	}
}

func TestBuildSinks(t *testing.T) {
	t.Run("json without path", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		cfg.EnabledSinks = []string{logging.SinkJSON}
		if _, err := buildSinks(cfg, io.Discard); err == nil {
			t.Fatalf("expected an error for a json sink without a path")
		}
	})

	t.Run("all sinks", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		cfg.EnabledSinks = []string{logging.SinkConsole, logging.SinkJSON, logging.SinkMemory}
		cfg.JSON.FilePath = filepath.Join(t.TempDir(), "logs", "events.jsonl")
		sinks, err := buildSinks(cfg, io.Discard)
		if err != nil {
			t.Fatalf("build sinks: %v", err)
		}
		if len(sinks) != 3 {
			t.Fatalf("expected 3 sinks, got %d", len(sinks))
		}
		for _, s := range sinks {
			if err := s.Sink.Close(context.Background()); err != nil {
				t.Fatalf("close %s: %v", s.Name, err)
			}
		}
		if _, err := os.Stat(cfg.JSON.FilePath); err != nil {
			t.Fatalf("expected json log file to exist: %v", err)
		}
	})
}

func TestRunServesUntilCancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	opts := quietOptions()
	opts.Config.Server.Addr = addr
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server never came up on %s", addr)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
