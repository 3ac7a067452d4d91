package movement

import (
	"context"
	"math/rand"
	"testing"

	"github.com/GroggNorvek/RaSpider/internal/colony"
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/navmesh"
	"github.com/GroggNorvek/RaSpider/internal/random"
	"github.com/GroggNorvek/RaSpider/internal/surface"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
)

func vec(x, y float64) geometry.Vec2 { return geometry.Vec2{X: x, Y: y} }

type stubWebs struct {
	web *webtask.Web
}

func (s stubWebs) FindWebAt(p geometry.Vec2) *webtask.Web {
	if s.web != nil && s.web.IsNear(p, webtask.WebQueryRadius) {
		return s.web
	}
	return nil
}

func treeTable() *surface.Table {
	table := surface.NewTable()
	table.SetTrunk(geometry.Rect{X: 100, Y: 0, W: 80, H: 400})
	table.AddBranch(surface.Line{Segment: geometry.Segment{A: vec(180, 100), B: vec(380, 100)}, Thickness: 8})
	return table
}

func TestDetectPrefersBranchThenTrunkThenWeb(t *testing.T) {
	web := &webtask.Web{Handle: 3, Start: vec(170, 200), End: vec(400, 200), Thickness: webtask.RegularThickness}
	q := NewSurfaceQuery(treeTable(), stubWebs{web: web})

	tests := []struct {
		name string
		p    geometry.Vec2
		want surface.Kind
	}{
		{name: "branch-over-trunk", p: vec(175, 100), want: surface.Branch},
		{name: "branch-tolerance", p: vec(300, 113), want: surface.Branch},
		{name: "trunk-over-web", p: vec(175, 200), want: surface.Trunk},
		{name: "web", p: vec(300, 205), want: surface.Web},
		{name: "open-air", p: vec(300, 300), want: surface.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := q.Detect(tt.p)
			if got.Kind != tt.want {
				t.Fatalf("Detect(%v) = %v, want %v", tt.p, got.Kind, tt.want)
			}
		})
	}
	if c := q.Detect(vec(300, 205)); c.Handle != 3 {
		t.Fatalf("expected web handle 3, got %d", c.Handle)
	}
}

func TestConstrainSnapsOntoDetectedSurface(t *testing.T) {
	q := NewSurfaceQuery(treeTable(), nil)

	got, ok := q.Constrain(vec(150, 300), vec(105, 310))
	if !ok || got != vec(120, 310) {
		t.Fatalf("trunk clamp = %v (%v), want (120,310)", got, ok)
	}
	got, ok = q.Constrain(vec(250, 100), vec(260, 108))
	if !ok || got != vec(260, 100) {
		t.Fatalf("branch projection = %v (%v), want (260,100)", got, ok)
	}
	got, ok = q.Constrain(vec(175, 300), vec(300, 300))
	if ok || got != vec(175, 300) {
		t.Fatalf("open-air move should be refused, got %v (%v)", got, ok)
	}
}

type countingNav struct {
	calls int
	gen   uint64
	path  []geometry.Vec2
}

func (n *countingNav) PathBetween(from, to geometry.Vec2) []geometry.Vec2 {
	n.calls++
	return append([]geometry.Vec2(nil), n.path...)
}

func (n *countingNav) RandomWalkable(*rand.Rand) *navmesh.Node { return nil }

func (n *countingNav) Generation() uint64 { return n.gen }

func (n *countingNav) Spacing() float64 { return 15 }

func TestEnsureReusesPathUntilMeshChanges(t *testing.T) {
	nav := &countingNav{path: []geometry.Vec2{vec(0, 0), vec(15, 0), vec(30, 0)}}
	f := NewPathFollower(15)

	if ok, searched := f.Ensure(nav, vec(0, 0), vec(30, 0), 1); !ok || !searched {
		t.Fatalf("first Ensure = %v/%v", ok, searched)
	}
	if ok, searched := f.Ensure(nav, vec(0, 0), vec(31, 0), 2); !ok || searched {
		t.Fatalf("second Ensure should reuse the path, got %v/%v", ok, searched)
	}
	nav.gen++
	if ok, searched := f.Ensure(nav, vec(0, 0), vec(30, 0), 3); !ok || !searched {
		t.Fatalf("generation change should replan, got %v/%v", ok, searched)
	}
	if nav.calls != 2 {
		t.Fatalf("expected 2 searches, got %d", nav.calls)
	}
}

func TestEnsureCoolsDownAfterFailure(t *testing.T) {
	nav := &countingNav{}
	f := NewPathFollower(15)
	if ok, searched := f.Ensure(nav, vec(0, 0), vec(90, 0), 10); ok || !searched {
		t.Fatalf("empty path should fail after a search, got %v/%v", ok, searched)
	}
	for tick := uint64(11); tick < 10+PathRecalcCooldownTicks; tick++ {
		if _, searched := f.Ensure(nav, vec(0, 0), vec(90, 0), tick); searched {
			t.Fatalf("tick %d searched during cooldown", tick)
		}
	}
	if _, searched := f.Ensure(nav, vec(0, 0), vec(90, 0), 10+PathRecalcCooldownTicks); !searched {
		t.Fatalf("expected a search once the cooldown elapsed")
	}
}

func TestStepFlagsStall(t *testing.T) {
	f := NewPathFollower(15)
	f.Path = []geometry.Vec2{vec(100, 0)}
	pos := vec(0, 0)

	for i := 0; i < PathStallThresholdTicks; i++ {
		if _, status := f.Step(pos, 1); status != FollowMoving {
			t.Fatalf("step %d: status %v, want moving", i, status)
		}
	}
	if _, status := f.Step(pos, 1); status != FollowStalled {
		t.Fatalf("expected stall after %d stuck ticks, got %v", PathStallThresholdTicks, status)
	}
}

func TestStepAdvancesThroughWaypoints(t *testing.T) {
	f := NewPathFollower(10)
	f.Path = []geometry.Vec2{vec(0, 0), vec(10, 0), vec(20, 0)}
	pos := vec(0, 0)
	var status FollowStatus
	for i := 0; i < 100; i++ {
		pos, status = f.Step(pos, 2)
		if status == FollowArrived {
			break
		}
	}
	if status != FollowArrived {
		t.Fatalf("follower never arrived, last status %v", status)
	}
	if pos.Dist(vec(20, 0)) > f.ArriveRadius {
		t.Fatalf("arrived too far from goal: %v", pos)
	}
}

func newTaskWorld(t *testing.T, silk float64, start, end geometry.Vec2, spiderAt geometry.Vec2) (*colony.Colony, *webtask.System, *webtask.Order) {
	t.Helper()
	col := colony.New()
	col.Add(colony.RoleWorker, spiderAt, silk, 1)
	sys := webtask.NewSystem(webtask.DefaultConfig(), nil, nil, col, nil)
	order, err := sys.CreateOrder(context.Background(), start, end, webtask.Regular)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if got := sys.CurrentOrder(1); got != order {
		t.Fatalf("worker was not assigned on creation")
	}
	return col, sys, order
}

func TestWorkerWithoutMeshMovesDirectlyAndBuilds(t *testing.T) {
	col, sys, order := newTaskWorld(t, 20, vec(10, 0), vec(50, 0), vec(0, 0))
	spider := col.Spider(1)
	ctrl := NewWorkerController(spider, sys, nil, nil, random.New("test", "worker"), DefaultWorkerConfig(), nil)

	for tick := uint64(1); tick <= 500 && order.Status != webtask.StatusComplete; tick++ {
		ctrl.Update(context.Background(), tick)
	}
	if order.Status != webtask.StatusComplete {
		t.Fatalf("order not complete, progress %.1f/%d", order.SilkProgress, order.SilkRequired)
	}
	if spider.Silk != 16 {
		t.Fatalf("expected 4 silk spent, spider has %.2f", spider.Silk)
	}
	if spider.Pos.Dist(vec(50, 0)) > 10 {
		t.Fatalf("worker should finish near the far end, at %v", spider.Pos)
	}
}

func TestWorkerAbandonsWhenSilkRunsOut(t *testing.T) {
	col, sys, order := newTaskWorld(t, 1, vec(2, 0), vec(42, 0), vec(0, 0))
	ctrl := NewWorkerController(col.Spider(1), sys, nil, nil, nil, DefaultWorkerConfig(), nil)

	for tick := uint64(1); tick <= 200 && sys.CurrentOrder(1) != nil; tick++ {
		ctrl.Update(context.Background(), tick)
	}
	if sys.CurrentOrder(1) != nil {
		t.Fatalf("worker still holds its order")
	}
	if order.Status != webtask.StatusPending || len(order.Assigned) != 0 {
		t.Fatalf("order should be pending and unassigned, got %s %v", order.Status, order.Assigned)
	}
	if order.SilkProgress != 1 {
		t.Fatalf("expected 1 silk of progress, got %.2f", order.SilkProgress)
	}
	if ctrl.Mode() != ModeIdle {
		t.Fatalf("expected idle after abandon, got %s", ctrl.Mode())
	}
}

func TestWorkerFollowsMeshToOrder(t *testing.T) {
	table := surface.NewTable()
	table.SetTrunk(geometry.Rect{X: 0, Y: 0, W: 30, H: 300})
	cfg := navmesh.DefaultConfig()
	cfg.Width, cfg.Height = 150, 300
	mesh := navmesh.Build(table, cfg)

	col := colony.New()
	col.Add(colony.RoleWorker, vec(15, 280), 20, 1.2)
	sys := webtask.NewSystem(webtask.DefaultConfig(), table, mesh, col, nil)
	order, err := sys.CreateOrder(context.Background(), vec(15, 20), vec(120, 20), webtask.Regular)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	ctrl := NewWorkerController(col.Spider(1), sys, mesh, NewSurfaceQuery(table, sys), nil, DefaultWorkerConfig(), nil)

	sawPath := false
	for tick := uint64(1); tick <= 2000 && order.Status != webtask.StatusComplete; tick++ {
		ctrl.Update(context.Background(), tick)
		if len(ctrl.Path()) > 0 {
			sawPath = true
		}
	}
	if !sawPath {
		t.Fatalf("worker never followed a mesh path")
	}
	if order.Status != webtask.StatusComplete {
		t.Fatalf("order not complete, progress %.1f/%d", order.SilkProgress, order.SilkRequired)
	}
	webs := sys.FinalizeCompleted(context.Background())
	if len(webs) != 1 || mesh.HasConstructionSite(order.ID) {
		t.Fatalf("expected a web and no construction site, got %d webs", len(webs))
	}
}

func TestRoamingWorkerStaysOnTrunk(t *testing.T) {
	table := surface.NewTable()
	trunk := geometry.Rect{X: 0, Y: 0, W: 60, H: 300}
	table.SetTrunk(trunk)
	cfg := navmesh.DefaultConfig()
	cfg.Width, cfg.Height = 120, 300
	mesh := navmesh.Build(table, cfg)

	col := colony.New()
	spider := col.Add(colony.RoleWorker, vec(30, 150), 10, 1.2)
	ctrl := NewWorkerController(spider, nil, mesh, NewSurfaceQuery(table, nil), random.New("test", "roam"), DefaultWorkerConfig(), nil)

	moved := false
	for tick := uint64(1); tick <= 1000; tick++ {
		before := spider.Pos
		ctrl.Update(context.Background(), tick)
		if spider.Pos != before {
			moved = true
		}
		if !trunk.Contains(spider.Pos) {
			t.Fatalf("tick %d: worker left the trunk at %v", tick, spider.Pos)
		}
	}
	if !moved {
		t.Fatalf("roaming worker never moved")
	}
	if ctrl.Mode() != ModeRoam {
		t.Fatalf("expected roam mode, got %s", ctrl.Mode())
	}
}

func TestMatriarchStaysInNestRegion(t *testing.T) {
	trunk := geometry.Rect{X: 560, Y: 50, W: 80, H: 750}
	nest := geometry.Ellipse{Center: vec(600, 425), RX: 16, RY: 112.5}
	spider := &colony.Spider{ID: 1, Role: colony.RoleMatriarch, Pos: vec(600, 350), Speed: 0.4}
	ctrl := NewMatriarchController(spider, trunk, &nest, []float64{400}, random.New("test", "matriarch"), DefaultMatriarchConfig())

	region := ctrl.Region()
	want := geometry.Rect{X: 584, Y: 312.5, W: 32, H: 225}
	if region != want {
		t.Fatalf("region = %+v, want %+v", region, want)
	}
	for tick := uint64(1); tick <= 5000; tick++ {
		ctrl.Update(tick)
		if !region.Contains(spider.Pos) {
			t.Fatalf("tick %d: matriarch left region at %v", tick, spider.Pos)
		}
		if spider.Pos.Y > 380 {
			t.Fatalf("tick %d: matriarch crossed the junction band at %v", tick, spider.Pos)
		}
	}
}

func TestMatriarchStartingOutsideIsPulledIn(t *testing.T) {
	trunk := geometry.Rect{X: 0, Y: 0, W: 100, H: 200}
	spider := &colony.Spider{ID: 1, Role: colony.RoleMatriarch, Pos: vec(-50, 500), Speed: 1}
	ctrl := NewMatriarchController(spider, trunk, nil, nil, nil, DefaultMatriarchConfig())
	if !ctrl.Region().Contains(spider.Pos) {
		t.Fatalf("matriarch should start inside %+v, at %v", ctrl.Region(), spider.Pos)
	}
}
