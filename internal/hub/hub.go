// Package hub runs the simulation loop and fans snapshots out to websocket
// subscribers.
package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/GroggNorvek/RaSpider/internal/net/proto"
	"github.com/GroggNorvek/RaSpider/internal/sim"
	"github.com/GroggNorvek/RaSpider/internal/telemetry"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/network"
	"github.com/GroggNorvek/RaSpider/logging/simulation"
)

const (
	DefaultBroadcastInterval = 2
	writeWait                = 5 * time.Second
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Config struct {
	Loop              sim.LoopConfig
	BroadcastInterval int
	Logger            telemetry.Logger
	Publisher         logging.Publisher
	Metrics           telemetry.Metrics
	Clock             logging.Clock
}

// Subscriber is one websocket session receiving snapshots.
type Subscriber struct {
	ID       string
	Encoding proto.Encoding
	Remote   string

	conn          Conn
	mu            sync.Mutex
	lastSeq       atomic.Uint64
	lastHeartbeat atomic.Int64
}

// WriteMessage serialises writes to the underlying connection.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Send encodes v in the subscriber's encoding.
func (s *Subscriber) Send(v any) error {
	data, err := s.Encoding.Marshal(v)
	if err != nil {
		return err
	}
	return s.WriteMessage(s.Encoding.FrameType(), data)
}

func (s *Subscriber) LastCommandSeq() uint64 { return s.lastSeq.Load() }

func (s *Subscriber) StoreLastCommandSeq(seq uint64) { s.lastSeq.Store(seq) }

func (s *Subscriber) Touch(now time.Time) { s.lastHeartbeat.Store(now.UnixMilli()) }

type Hub struct {
	loop     *sim.Loop
	static   sim.Static
	runID    string
	cfg      Config
	logger   telemetry.Logger
	pub      logging.Publisher
	clock    logging.Clock
	counters *telemetry.Counters

	mu          sync.Mutex
	subscribers map[string]*Subscriber

	stateMu sync.RWMutex
	latest  sim.Snapshot

	tick          atomic.Uint64
	overrunStreak uint64
}

// New wraps world in a loop. The hub owns the world from here on; callers
// must not touch it except through the hub.
func New(world *sim.World, cfg Config) *Hub {
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = DefaultBroadcastInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.ClockFunc(time.Now)
	}
	h := &Hub{
		static:      world.Static(),
		runID:       uuid.NewString(),
		cfg:         cfg,
		logger:      cfg.Logger,
		pub:         cfg.Publisher,
		clock:       cfg.Clock,
		counters:    telemetry.NewCounters(),
		subscribers: make(map[string]*Subscriber),
		latest:      world.Snapshot(),
	}
	h.loop = sim.NewLoop(world, cfg.Loop, sim.LoopHooks{
		AfterStep: func(result sim.StepResult) {
			h.afterStep(context.Background(), result)
		},
		OnCommandDrop: func(reason string, cmd sim.Command) {
			simulation.CommandRejected(context.Background(), h.pub, h.tick.Load(), network.Session(cmd.ActorID), simulation.CommandRejectedPayload{
				Command: string(cmd.Type),
				Reason:  reason,
			}, nil)
		},
	}, cfg.Logger, cfg.Metrics)
	h.loop.SetClock(cfg.Clock)
	return h
}

func (h *Hub) RunID() string { return h.runID }

func (h *Hub) Static() sim.Static { return h.static }

func (h *Hub) Tick() uint64 { return h.tick.Load() }

func (h *Hub) TickRate() int { return h.loop.Config().TickRate }

func (h *Hub) Counters() *telemetry.Counters { return h.counters }

// Run announces the world and drives the loop until ctx is cancelled. All
// subscriber connections are closed on return.
func (h *Hub) Run(ctx context.Context) {
	world := h.loop.World()
	simulation.WorldStarted(ctx, h.pub, simulation.WorldStartedPayload{
		Seed:     h.static.Seed,
		Spiders:  world.Colony().Len(),
		Branches: len(h.static.Tree.Branches),
		TickRate: h.TickRate(),
	}, map[string]any{"runId": h.runID})
	h.logger.Printf("simulation %s running at %d Hz", h.runID, h.TickRate())
	h.loop.Run(ctx)
	h.closeAll()
}

// Step advances one tick synchronously. It must not be mixed with Run.
func (h *Hub) Step(ctx context.Context) sim.StepResult {
	result := h.loop.Advance(ctx)
	h.afterStep(ctx, result)
	return result
}

// Enqueue stamps a command with its session and stages it for the next
// tick.
func (h *Hub) Enqueue(sessionID string, cmd sim.Command) (sim.Command, bool, string) {
	cmd.ActorID = sessionID
	cmd.OriginTick = h.tick.Load() + 1
	cmd.IssuedAt = h.clock.Now()
	ok, reason := h.loop.Enqueue(cmd)
	return cmd, ok, reason
}

func (h *Hub) Pending() int { return h.loop.Pending() }

// State returns the most recent snapshot.
func (h *Hub) State() sim.Snapshot {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.latest
}

// Subscribe registers a session and sends it the static world followed by
// the latest state.
func (h *Hub) Subscribe(conn Conn, encoding proto.Encoding, remote string) (*Subscriber, error) {
	sub := &Subscriber{
		ID:       uuid.NewString(),
		Encoding: encoding,
		Remote:   remote,
		conn:     conn,
	}
	sub.Touch(h.clock.Now())

	if err := sub.Send(proto.NewWorldMessage(h.runID, h.static)); err != nil {
		return nil, err
	}
	state := proto.NewStateMessage(h.clock.Now().UnixMilli(), h.State())
	data, err := encoding.Marshal(state)
	if err != nil {
		return nil, err
	}
	if err := sub.WriteMessage(encoding.FrameType(), data); err != nil {
		return nil, err
	}
	h.counters.RecordBroadcast(len(data), 1)

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()
	h.counters.SessionOpened()
	network.SessionOpened(context.Background(), h.pub, h.tick.Load(), network.Session(sub.ID), network.SessionPayload{
		Encoding: string(encoding),
		Remote:   remote,
	})
	return sub, nil
}

// Disconnect removes the session and closes its connection. It reports
// whether the session was still registered.
func (h *Hub) Disconnect(id string) bool {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}
	sub.conn.Close()
	h.counters.SessionClosed()
	network.SessionClosed(context.Background(), h.pub, h.tick.Load(), network.Session(id), network.SessionPayload{
		Encoding: string(sub.Encoding),
		Remote:   sub.Remote,
	})
	return true
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// DiagnosticsSession is the per-session view served on /diagnostics.
type DiagnosticsSession struct {
	ID            string `json:"id"`
	Encoding      string `json:"encoding"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	LastSeq       uint64 `json:"lastSeq"`
}

func (h *Hub) DiagnosticsSnapshot() []DiagnosticsSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]DiagnosticsSession, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		out = append(out, DiagnosticsSession{
			ID:            sub.ID,
			Encoding:      string(sub.Encoding),
			LastHeartbeat: sub.lastHeartbeat.Load(),
			LastSeq:       sub.LastCommandSeq(),
		})
	}
	return out
}

func (h *Hub) afterStep(ctx context.Context, result sim.StepResult) {
	h.tick.Store(result.Tick)
	h.stateMu.Lock()
	h.latest = result.Snapshot
	h.stateMu.Unlock()

	h.counters.RecordTickDuration(result.Duration)
	if result.Budget > 0 && result.Duration > result.Budget {
		h.overrunStreak++
		h.counters.IncrementOverrun()
		simulation.TickBudgetOverrun(ctx, h.pub, result.Tick, simulation.TickBudgetOverrunPayload{
			DurationMillis: result.Duration.Milliseconds(),
			BudgetMillis:   result.Budget.Milliseconds(),
			Ratio:          float64(result.Duration) / float64(result.Budget),
			Streak:         h.overrunStreak,
		}, nil)
	} else {
		h.overrunStreak = 0
	}

	if result.Tick%uint64(h.cfg.BroadcastInterval) == 0 {
		h.broadcast(result.Snapshot)
	}
}

// broadcast encodes the snapshot at most once per encoding and writes it to
// every subscriber. Failed writes drop the session.
func (h *Hub) broadcast(snap sim.Snapshot) {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	msg := proto.NewStateMessage(h.clock.Now().UnixMilli(), snap)
	frames := make(map[proto.Encoding][]byte, 2)
	for _, sub := range subs {
		data, ok := frames[sub.Encoding]
		if !ok {
			encoded, err := sub.Encoding.Marshal(msg)
			if err != nil {
				h.logger.Printf("failed to encode state as %s: %v", sub.Encoding, err)
				continue
			}
			frames[sub.Encoding] = encoded
			data = encoded
		}
		if err := sub.WriteMessage(sub.Encoding.FrameType(), data); err != nil {
			h.logger.Printf("failed to send update to %s: %v", sub.ID, err)
			h.Disconnect(sub.ID)
			continue
		}
		h.counters.RecordBroadcast(len(data), 1)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Disconnect(id)
	}
}
