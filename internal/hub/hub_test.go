package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/net/proto"
	"github.com/GroggNorvek/RaSpider/internal/sim"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/network"
	"github.com/GroggNorvek/RaSpider/logging/simulation"
)

type frame struct {
	kind int
	data []byte
}

type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	fail   bool
	closed bool
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, frame{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(f.data, &head); err != nil {
			t.Fatalf("frame is not json: %v", err)
		}
		out = append(out, head.Type)
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []logging.Event
}

func (r *recorder) Publish(_ context.Context, e logging.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(typ logging.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func newTestHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	worldCfg := sim.DefaultConfig()
	worldCfg.NavEnabled = false
	worldCfg.Prey.Enabled = false
	return New(sim.NewWorld(context.Background(), worldCfg, nil), cfg)
}

func TestSubscribeSendsWorldThenState(t *testing.T) {
	rec := &recorder{}
	h := newTestHub(t, Config{Publisher: rec})
	conn := &fakeConn{}
	sub, err := h.Subscribe(conn, proto.EncodingJSON, "127.0.0.1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.ID == "" {
		t.Fatalf("expected a session id")
	}
	got := conn.types(t)
	if len(got) != 2 || got[0] != proto.TypeWorld || got[1] != proto.TypeState {
		t.Fatalf("unexpected initial frames %v", got)
	}
	if h.SubscriberCount() != 1 || h.Counters().Snapshot().ActiveSessions != 1 {
		t.Fatalf("session not registered")
	}
	if rec.count(network.EventSessionOpened) != 1 {
		t.Fatalf("expected session opened event")
	}

	if !h.Disconnect(sub.ID) {
		t.Fatalf("expected disconnect to find the session")
	}
	if h.Disconnect(sub.ID) {
		t.Fatalf("second disconnect should be a no-op")
	}
	if !conn.closed || rec.count(network.EventSessionClosed) != 1 {
		t.Fatalf("connection not closed or event missing")
	}
}

func TestBroadcastEveryInterval(t *testing.T) {
	h := newTestHub(t, Config{BroadcastInterval: 3})
	conn := &fakeConn{}
	if _, err := h.Subscribe(conn, proto.EncodingJSON, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		h.Step(ctx)
	}
	got := conn.types(t)
	// world + initial state + ticks 3 and 6
	if len(got) != 4 {
		t.Fatalf("expected 4 frames, got %v", got)
	}
	var last proto.StateMessage
	if err := json.Unmarshal(conn.frames[3].data, &last); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if last.State.Tick != 6 {
		t.Fatalf("expected tick 6 state, got %d", last.State.Tick)
	}
	if h.State().Tick != 6 || h.Tick() != 6 {
		t.Fatalf("latest state not cached")
	}
}

func TestMsgpackSubscriberGetsBinaryFrames(t *testing.T) {
	h := newTestHub(t, Config{BroadcastInterval: 1})
	conn := &fakeConn{}
	if _, err := h.Subscribe(conn, proto.EncodingMsgpack, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	h.Step(context.Background())
	if len(conn.frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(conn.frames))
	}
	for _, f := range conn.frames {
		if f.kind != websocket.BinaryMessage {
			t.Fatalf("expected binary frame, got %d", f.kind)
		}
	}
	var state proto.StateMessage
	if err := msgpack.Unmarshal(conn.frames[2].data, &state); err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if state.Type != proto.TypeState || state.State.Tick != 1 {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestFailedWriteDropsSubscriber(t *testing.T) {
	h := newTestHub(t, Config{BroadcastInterval: 1})
	conn := &fakeConn{}
	if _, err := h.Subscribe(conn, proto.EncodingJSON, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	conn.fail = true
	h.Step(context.Background())
	if h.SubscriberCount() != 0 {
		t.Fatalf("broken subscriber kept")
	}
}

func TestEnqueueAppliesOnNextStep(t *testing.T) {
	h := newTestHub(t, Config{})
	cmd, ok, reason := h.Enqueue("session-1", sim.Command{
		Type: sim.CommandDrag,
		Drag: &sim.DragCommand{Start: geometry.Vec2{X: 565, Y: 430}, End: geometry.Vec2{X: 565, Y: 300}},
	})
	if !ok {
		t.Fatalf("enqueue rejected: %s", reason)
	}
	if cmd.ActorID != "session-1" || cmd.OriginTick != 1 {
		t.Fatalf("command not stamped: %+v", cmd)
	}
	if h.Pending() != 1 || len(h.State().Orders) != 0 {
		t.Fatalf("command applied early")
	}
	result := h.Step(context.Background())
	if len(result.Outcomes) != 1 || result.Outcomes[0].Err != nil {
		t.Fatalf("unexpected outcomes %+v", result.Outcomes)
	}
	if len(h.State().Orders) != 1 {
		t.Fatalf("expected an order after the step")
	}
}

func TestDroppedCommandIsLogged(t *testing.T) {
	rec := &recorder{}
	h := newTestHub(t, Config{Publisher: rec})
	if _, ok, reason := h.Enqueue("s", sim.Command{Type: sim.CommandDrag}); ok || reason != sim.CommandRejectInvalid {
		t.Fatalf("expected invalid rejection, got %v %q", ok, reason)
	}
	if rec.count(simulation.EventCommandRejected) != 1 {
		t.Fatalf("expected command rejected event")
	}
}

func TestSlowTickPublishesOverrun(t *testing.T) {
	rec := &recorder{}
	var mu sync.Mutex
	now := time.Unix(0, 0)
	clock := logging.ClockFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(100 * time.Millisecond)
		return now
	})
	h := newTestHub(t, Config{Publisher: rec, Clock: clock})
	h.Step(context.Background())
	h.Step(context.Background())
	if rec.count(simulation.EventTickBudgetOverrun) != 2 {
		t.Fatalf("expected 2 overrun events, got %d", rec.count(simulation.EventTickBudgetOverrun))
	}
	if h.Counters().Snapshot().TickOverruns != 2 {
		t.Fatalf("overrun counter not incremented")
	}
	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	payload, ok := last.Payload.(simulation.TickBudgetOverrunPayload)
	if !ok || payload.Streak != 2 {
		t.Fatalf("expected streak 2, got %+v", last.Payload)
	}
}

func TestRunStopsAndClosesSessions(t *testing.T) {
	rec := &recorder{}
	h := newTestHub(t, Config{Publisher: rec, Loop: sim.LoopConfig{TickRate: 200}})
	conn := &fakeConn{}
	if _, err := h.Subscribe(conn, proto.EncodingJSON, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	deadline := time.After(2 * time.Second)
	for h.Tick() < 3 {
		select {
		case <-deadline:
			t.Fatalf("loop did not advance")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	if h.SubscriberCount() != 0 || !conn.closed {
		t.Fatalf("sessions not closed on shutdown")
	}
	if rec.count(simulation.EventWorldStarted) != 1 {
		t.Fatalf("expected world started event")
	}
}
