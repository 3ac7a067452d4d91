// Package app wires configuration, logging, the simulation hub and the HTTP
// server into a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/GroggNorvek/RaSpider/internal/config"
	"github.com/GroggNorvek/RaSpider/internal/hub"
	servernet "github.com/GroggNorvek/RaSpider/internal/net"
	"github.com/GroggNorvek/RaSpider/internal/sim"
	"github.com/GroggNorvek/RaSpider/internal/telemetry"
	"github.com/GroggNorvek/RaSpider/logging"
	loggingSinks "github.com/GroggNorvek/RaSpider/logging/sinks"
)

const (
	memorySinkLimit = 4096
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Config config.Config
	Logger telemetry.Logger
	// Stdout receives the console sink. Defaults to os.Stdout.
	Stdout io.Writer
}

func (o Options) logger() telemetry.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return telemetry.WrapLogger(log.Default())
}

// runtime bundles what both Run and Simulate need.
type runtime struct {
	cfg     config.Config
	logger  telemetry.Logger
	router  *logging.Router
	metrics *telemetry.Registry
	hub     *hub.Hub
}

func newRuntime(ctx context.Context, opts Options, extraSinks ...logging.NamedSink) (*runtime, error) {
	logger := opts.logger()
	cfg, err := opts.Config.Normalized()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sinks, err := buildSinks(cfg.Logging, opts.Stdout)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, extraSinks...)
	router, err := logging.NewRouter(nil, cfg.Logging, sinks)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}

	metrics := telemetry.NewRegistry()
	world := sim.NewWorld(ctx, cfg.World, router)
	h := hub.New(world, hub.Config{
		Loop:              cfg.Loop,
		BroadcastInterval: cfg.Server.BroadcastInterval,
		Logger:            logger,
		Publisher:         router,
		Metrics:           metrics,
	})
	return &runtime{cfg: cfg, logger: logger, router: router, metrics: metrics, hub: h}, nil
}

func (rt *runtime) close(ctx context.Context) {
	if err := rt.router.Close(ctx); err != nil {
		rt.logger.Printf("failed to close logging router: %v", err)
	}
}

func buildSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	var sinks []logging.NamedSink
	if cfg.HasSink(logging.SinkConsole) {
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkConsole, Sink: loggingSinks.NewConsole(stdout)})
	}
	if cfg.HasSink(logging.SinkJSON) {
		path := cfg.JSON.FilePath
		if path == "" {
			return nil, errors.New("json sink enabled without a file path")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	if cfg.HasSink(logging.SinkMemory) {
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkMemory, Sink: loggingSinks.NewMemory(memorySinkLimit)})
	}
	return sinks, nil
}

// Run serves the simulation until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		rt.close(closeCtx)
	}()

	simCtx, stopSim := context.WithCancel(ctx)
	simDone := make(chan struct{})
	go func() {
		rt.hub.Run(simCtx)
		close(simDone)
	}()
	defer func() {
		stopSim()
		<-simDone
	}()

	handler := servernet.NewHTTPHandler(rt.hub, servernet.HTTPHandlerConfig{
		Logger:           rt.logger,
		Publisher:        rt.router,
		Router:           rt.router,
		Metrics:          rt.metrics,
		EnablePprof:      rt.cfg.Server.EnablePprof,
		ReadLimit:        rt.cfg.Server.ReadLimit,
		HeartbeatTimeout: rt.cfg.Server.HeartbeatTimeout,
	})

	srv := &http.Server{Addr: rt.cfg.Server.Addr, Handler: handler}
	rt.logger.Printf("server listening on %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

// Report summarises a headless run.
type Report struct {
	RunID    string             `json:"runId"`
	Ticks    uint64             `json:"ticks"`
	Snapshot sim.Snapshot       `json:"snapshot"`
	Events   map[string]int     `json:"events"`
	Counters telemetry.Snapshot `json:"counters"`
}

// EventTypes lists the event counts in a stable order.
func (r Report) EventTypes() []string {
	keys := make([]string, 0, len(r.Events))
	for k := range r.Events {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Simulate advances the world ticks times without a server or wall clock.
// Commands are applied on the tick after they are staged.
func Simulate(ctx context.Context, opts Options, ticks int, commands []sim.Command) (Report, error) {
	memory := loggingSinks.NewMemory(0)
	rt, err := newRuntime(ctx, opts, logging.NamedSink{Name: "report", Sink: memory})
	if err != nil {
		return Report{}, err
	}

	for _, cmd := range commands {
		if _, ok, reason := rt.hub.Enqueue("cli", cmd); !ok {
			rt.logger.Printf("command %s rejected: %s", cmd.Type, reason)
		}
	}
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			break
		}
		rt.hub.Step(ctx)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	rt.close(closeCtx)

	report := Report{
		RunID:    rt.hub.RunID(),
		Ticks:    rt.hub.Tick(),
		Snapshot: rt.hub.State(),
		Events:   make(map[string]int),
		Counters: rt.hub.Counters().Snapshot(),
	}
	for _, event := range memory.Events() {
		report.Events[string(event.Type)]++
	}
	return report, ctx.Err()
}
