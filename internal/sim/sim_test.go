package sim

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/simulation"
)

type recorder struct {
	events []logging.Event
}

func (r *recorder) Publish(_ context.Context, e logging.Event) { r.events = append(r.events, e) }

func (r *recorder) count(typ logging.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// quietConfig keeps prey out of the way so construction is the only thing
// changing the world.
func quietConfig(nav bool) Config {
	cfg := DefaultConfig()
	cfg.NavEnabled = nav
	cfg.Prey.Enabled = false
	return cfg
}

func dragCommand(actor string, from, to geometry.Vec2) Command {
	return Command{ActorID: actor, Type: CommandDrag, Drag: &DragCommand{Start: from, End: to}}
}

func TestNewWorldPopulatesColony(t *testing.T) {
	world := NewWorld(context.Background(), DefaultConfig(), nil)
	if world.Mesh() == nil {
		t.Fatalf("expected navigation mesh to be built")
	}
	if got := len(world.Workers()); got != DefaultConfig().Colony.Workers {
		t.Fatalf("expected %d workers, got %d", DefaultConfig().Colony.Workers, got)
	}
	if world.Matriarch() == nil {
		t.Fatalf("expected a matriarch controller")
	}
	if world.Tick() != 0 {
		t.Fatalf("fresh world should start at tick 0, got %d", world.Tick())
	}
	static := world.Static()
	if static.Seed != DefaultConfig().Seed || static.Width != 1200 || static.Height != 800 {
		t.Fatalf("unexpected static view %+v", static)
	}
}

func TestWorldIsDeterministicForSeed(t *testing.T) {
	ctx := context.Background()
	a := NewWorld(ctx, DefaultConfig(), nil)
	b := NewWorld(ctx, DefaultConfig(), nil)
	for i := 0; i < 120; i++ {
		a.Step(ctx)
		b.Step(ctx)
	}
	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Fatalf("same seed produced diverging worlds")
	}
}

func TestCommandsApplyOnNextTick(t *testing.T) {
	ctx := context.Background()
	world := NewWorld(ctx, quietConfig(false), nil)
	loop := NewLoop(world, DefaultLoopConfig(), LoopHooks{}, nil, nil)

	ok, reason := loop.Enqueue(dragCommand("player", geometry.Vec2{X: 565, Y: 430}, geometry.Vec2{X: 565, Y: 300}))
	if !ok {
		t.Fatalf("expected enqueue to succeed, got %q", reason)
	}
	if loop.Pending() != 1 {
		t.Fatalf("expected 1 pending command, got %d", loop.Pending())
	}
	if len(world.Tasks().Orders()) != 0 {
		t.Fatalf("command applied before the tick")
	}

	result := loop.Advance(ctx)
	if result.Tick != 1 {
		t.Fatalf("expected tick 1, got %d", result.Tick)
	}
	if len(result.Outcomes) != 1 || result.Outcomes[0].Err != nil || result.Outcomes[0].OrderID != 1 {
		t.Fatalf("unexpected outcomes %+v", result.Outcomes)
	}
	if len(result.Snapshot.Orders) != 1 {
		t.Fatalf("expected the order in the snapshot, got %+v", result.Snapshot.Orders)
	}
	if result.Snapshot.Orders[0].Assignee == 0 {
		t.Fatalf("expected the order to be assigned on creation")
	}
	if loop.Pending() != 0 {
		t.Fatalf("queue not drained")
	}
}

func TestDragBuildsWebEndToEnd(t *testing.T) {
	for _, nav := range []bool{false, true} {
		name := "direct"
		if nav {
			name = "navmesh"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			world := NewWorld(ctx, quietConfig(nav), nil)
			loop := NewLoop(world, DefaultLoopConfig(), LoopHooks{}, nil, nil)
			if ok, reason := loop.Enqueue(dragCommand("player", geometry.Vec2{X: 565, Y: 430}, geometry.Vec2{X: 565, Y: 300})); !ok {
				t.Fatalf("enqueue failed: %s", reason)
			}
			startSilk := world.Colony().TotalSilk()

			var last StepResult
			for i := 0; i < 2000 && len(world.Tasks().Webs()) == 0; i++ {
				last = loop.Advance(ctx)
			}
			webs := world.Tasks().Webs()
			if len(webs) != 1 {
				t.Fatalf("expected 1 web after %d ticks, got %d (orders %+v)", last.Tick, len(webs), last.Snapshot.Orders)
			}
			if webs[0].Type != webtask.Regular {
				t.Fatalf("expected a regular web, got %s", webs[0].Type)
			}
			if len(world.Tasks().Orders()) != 0 {
				t.Fatalf("finished order still listed")
			}
			spent := startSilk - world.Colony().TotalSilk()
			if spent < 13-1e-6 || spent > 13+1e-6 {
				t.Fatalf("expected 13 silk spent, got %.3f", spent)
			}
			if nav && world.Mesh().HasConstructionSite(1) {
				t.Fatalf("construction site left behind")
			}
		})
	}
}

func TestRejectedDragIsReported(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	world := NewWorld(ctx, quietConfig(false), rec)
	outcomes := world.Apply(ctx, []Command{dragCommand("player", geometry.Vec2{X: 5, Y: 790}, geometry.Vec2{X: 565, Y: 300})})
	if len(outcomes) != 1 || !errors.Is(outcomes[0].Err, webtask.ErrNoSurface) {
		t.Fatalf("expected ErrNoSurface, got %+v", outcomes)
	}
	if rec.count(simulation.EventCommandRejected) != 1 {
		t.Fatalf("expected a command rejected event")
	}
	if len(world.Tasks().Orders()) != 0 {
		t.Fatalf("rejected drag created an order")
	}
}

func TestDebugGatesNavOverlay(t *testing.T) {
	ctx := context.Background()
	world := NewWorld(ctx, quietConfig(true), nil)
	loop := NewLoop(world, DefaultLoopConfig(), LoopHooks{}, nil, nil)

	if snap := loop.Advance(ctx).Snapshot; snap.Nav != nil || snap.Debug {
		t.Fatalf("overlay present without debug")
	}
	loop.Enqueue(Command{Type: CommandSetDebug, Debug: &DebugCommand{Enabled: true}})
	snap := loop.Advance(ctx).Snapshot
	if !snap.Debug || snap.Nav == nil {
		t.Fatalf("expected overlay after enabling debug")
	}
	if len(snap.Nav.Nodes) == 0 || len(snap.Nav.Edges) == 0 {
		t.Fatalf("expected overlay nodes and edges, got %d/%d", len(snap.Nav.Nodes), len(snap.Nav.Edges))
	}
	for _, e := range snap.Nav.Edges {
		if e[0] < 0 || e[0] >= len(snap.Nav.Nodes) || e[1] < 0 || e[1] >= len(snap.Nav.Nodes) {
			t.Fatalf("edge %v out of range", e)
		}
	}
}

func TestEnqueueRejections(t *testing.T) {
	world := NewWorld(context.Background(), quietConfig(false), nil)
	debug := func(actor string) Command {
		return Command{ActorID: actor, Type: CommandSetDebug, Debug: &DebugCommand{Enabled: true}}
	}

	t.Run("invalid", func(t *testing.T) {
		var dropped []string
		loop := NewLoop(world, DefaultLoopConfig(), LoopHooks{
			OnCommandDrop: func(reason string, _ Command) { dropped = append(dropped, reason) },
		}, nil, nil)
		ok, reason := loop.Enqueue(Command{ActorID: "a", Type: CommandDrag})
		if ok || reason != CommandRejectInvalid {
			t.Fatalf("expected invalid rejection, got %v %q", ok, reason)
		}
		if len(dropped) != 1 || dropped[0] != CommandRejectInvalid {
			t.Fatalf("drop hook not called: %v", dropped)
		}
	})

	t.Run("per actor limit", func(t *testing.T) {
		loop := NewLoop(world, LoopConfig{CommandCapacity: 8, PerActorLimit: 1}, LoopHooks{}, nil, nil)
		if ok, _ := loop.Enqueue(debug("a")); !ok {
			t.Fatalf("first command rejected")
		}
		if ok, reason := loop.Enqueue(debug("a")); ok || reason != CommandRejectQueueLimit {
			t.Fatalf("expected queue_limit, got %v %q", ok, reason)
		}
		if ok, _ := loop.Enqueue(debug("b")); !ok {
			t.Fatalf("other actor should not be throttled")
		}
		loop.DrainCommands()
		if ok, _ := loop.Enqueue(debug("a")); !ok {
			t.Fatalf("limit should reset after drain")
		}
	})

	t.Run("buffer full", func(t *testing.T) {
		loop := NewLoop(world, LoopConfig{CommandCapacity: 1}, LoopHooks{}, nil, nil)
		loop.Enqueue(debug("a"))
		if ok, reason := loop.Enqueue(debug("b")); ok || reason != CommandRejectQueueFull {
			t.Fatalf("expected queue_full, got %v %q", ok, reason)
		}
	})

	t.Run("nil loop", func(t *testing.T) {
		var loop *Loop
		if ok, reason := loop.Enqueue(debug("a")); ok || reason != CommandRejectQueueFull {
			t.Fatalf("nil loop accepted a command")
		}
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	world := NewWorld(context.Background(), quietConfig(false), nil)
	ctx, cancel := context.WithCancel(context.Background())
	steps := make(chan uint64, 4)
	loop := NewLoop(world, LoopConfig{TickRate: 200}, LoopHooks{
		AfterStep: func(r StepResult) {
			select {
			case steps <- r.Tick:
			default:
			}
			if r.Tick >= 3 {
				cancel()
			}
		},
	}, nil, nil)

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	<-done
	if world.Tick() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", world.Tick())
	}
	if first := <-steps; first != 1 {
		t.Fatalf("expected first step to report tick 1, got %d", first)
	}
}
