package sim

import (
	"github.com/GroggNorvek/RaSpider/internal/colony"
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/movement"
	"github.com/GroggNorvek/RaSpider/internal/navmesh"
	"github.com/GroggNorvek/RaSpider/internal/prey"
	"github.com/GroggNorvek/RaSpider/internal/tree"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
)

type SpiderState struct {
	ID      int           `json:"id" msgpack:"id"`
	Role    colony.Role   `json:"role" msgpack:"role"`
	Pos     geometry.Vec2 `json:"pos" msgpack:"pos"`
	Silk    float64       `json:"silk" msgpack:"silk"`
	MaxSilk float64       `json:"maxSilk" msgpack:"maxSilk"`
	Mode    movement.Mode `json:"mode,omitempty" msgpack:"mode,omitempty"`
	OrderID int           `json:"orderId,omitempty" msgpack:"orderId,omitempty"`
}

type OrderState struct {
	ID            int               `json:"id" msgpack:"id"`
	Type          webtask.OrderType `json:"type" msgpack:"type"`
	Status        webtask.Status    `json:"status" msgpack:"status"`
	Start         geometry.Vec2     `json:"start" msgpack:"start"`
	End           geometry.Vec2     `json:"end" msgpack:"end"`
	Progress      float64           `json:"progress" msgpack:"progress"`
	SilkRequired  int               `json:"silkRequired" msgpack:"silkRequired"`
	SilkProgress  float64           `json:"silkProgress" msgpack:"silkProgress"`
	ProgressPoint geometry.Vec2     `json:"progressPoint" msgpack:"progressPoint"`
	NearPoint     geometry.Vec2     `json:"nearPoint" msgpack:"nearPoint"`
	Assignee      int               `json:"assignee,omitempty" msgpack:"assignee,omitempty"`
}

type WebState struct {
	ID        int               `json:"id" msgpack:"id"`
	Type      webtask.OrderType `json:"type" msgpack:"type"`
	Start     geometry.Vec2     `json:"start" msgpack:"start"`
	End       geometry.Vec2     `json:"end" msgpack:"end"`
	Thickness float64           `json:"thickness" msgpack:"thickness"`
	Vibration float64           `json:"vibration,omitempty" msgpack:"vibration,omitempty"`
	Stored    int               `json:"stored,omitempty" msgpack:"stored,omitempty"`
	Capacity  int               `json:"capacity,omitempty" msgpack:"capacity,omitempty"`
}

type PreyState struct {
	ID    int           `json:"id" msgpack:"id"`
	Pos   geometry.Vec2 `json:"pos" msgpack:"pos"`
	State prey.State    `json:"state" msgpack:"state"`
}

type NavNodeState struct {
	Pos     geometry.Vec2 `json:"pos" msgpack:"pos"`
	Surface string        `json:"surface" msgpack:"surface"`
}

// NavOverlay is the debug view of the mesh. Edges are listed once each as
// pairs of indices into Nodes.
type NavOverlay struct {
	Generation uint64         `json:"generation" msgpack:"generation"`
	Nodes      []NavNodeState `json:"nodes" msgpack:"nodes"`
	Edges      [][2]int       `json:"edges" msgpack:"edges"`
}

// Snapshot is an immutable view of the world handed to the broadcast
// fan-out.
type Snapshot struct {
	Tick    uint64        `json:"tick" msgpack:"tick"`
	Debug   bool          `json:"debug" msgpack:"debug"`
	Spiders []SpiderState `json:"spiders" msgpack:"spiders"`
	Orders  []OrderState  `json:"orders" msgpack:"orders"`
	Webs    []WebState    `json:"webs" msgpack:"webs"`
	Prey    []PreyState   `json:"prey" msgpack:"prey"`
	Nav     *NavOverlay   `json:"nav,omitempty" msgpack:"nav,omitempty"`
}

// Static is the part of the world that never changes after generation.
type Static struct {
	Seed   string    `json:"seed" msgpack:"seed"`
	Width  float64   `json:"width" msgpack:"width"`
	Height float64   `json:"height" msgpack:"height"`
	Tree   tree.Tree `json:"tree" msgpack:"tree"`
}

func (w *World) Static() Static {
	return Static{
		Seed:   w.cfg.Seed,
		Width:  w.cfg.Layout.Width,
		Height: w.cfg.Layout.Height,
		Tree:   w.tree,
	}
}

// Snapshot copies the dynamic state. The nav overlay is only included while
// debug is on.
func (w *World) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:    w.tick,
		Debug:   w.debug,
		Spiders: make([]SpiderState, 0, w.colony.Len()),
		Orders:  make([]OrderState, 0, len(w.tasks.Orders())),
		Webs:    make([]WebState, 0, len(w.tasks.Webs())),
		Prey:    make([]PreyState, 0, len(w.prey.Mosquitos())),
	}

	modes := make(map[int]movement.Mode, len(w.workers))
	for _, c := range w.workers {
		modes[c.Spider().ID] = c.Mode()
	}
	for _, s := range w.colony.Spiders() {
		state := SpiderState{
			ID:      s.ID,
			Role:    s.Role,
			Pos:     s.Pos,
			Silk:    s.Silk,
			MaxSilk: s.MaxSilk,
			Mode:    modes[s.ID],
		}
		if order, ok := w.tasks.Assignments().OrderOf(s.ID); ok {
			state.OrderID = order
		}
		snap.Spiders = append(snap.Spiders, state)
	}

	for _, o := range w.tasks.Orders() {
		state := OrderState{
			ID:            o.ID,
			Type:          o.Type,
			Status:        o.Status,
			Start:         o.Start,
			End:           o.End,
			Progress:      o.ProgressFraction(),
			SilkRequired:  o.SilkRequired,
			SilkProgress:  o.SilkProgress,
			ProgressPoint: o.ProgressPoint(),
			NearPoint:     o.NearPoint,
		}
		if agent, ok := w.tasks.Assignments().AgentOf(o.ID); ok {
			state.Assignee = agent
		}
		snap.Orders = append(snap.Orders, state)
	}

	for _, web := range w.tasks.Webs() {
		state := WebState{
			ID:        web.ID,
			Type:      web.Type,
			Start:     web.Start,
			End:       web.End,
			Thickness: web.Thickness,
			Vibration: web.Vibration,
		}
		if web.Larder != nil {
			state.Stored = web.Larder.Len()
			state.Capacity = web.Larder.Capacity
		}
		snap.Webs = append(snap.Webs, state)
	}

	for _, mq := range w.prey.Mosquitos() {
		snap.Prey = append(snap.Prey, PreyState{ID: mq.ID, Pos: mq.Pos, State: mq.State})
	}

	if w.debug && w.mesh != nil {
		snap.Nav = buildNavOverlay(w.mesh)
	}
	return snap
}

func buildNavOverlay(mesh *navmesh.Mesh) *NavOverlay {
	walkable := mesh.Walkable()
	overlay := &NavOverlay{
		Generation: mesh.Generation(),
		Nodes:      make([]NavNodeState, 0, len(walkable)),
	}
	index := make(map[*navmesh.Node]int, len(walkable))
	for _, node := range walkable {
		index[node] = len(overlay.Nodes)
		overlay.Nodes = append(overlay.Nodes, NavNodeState{Pos: node.Pos, Surface: node.Surface.Kind.String()})
	}
	mesh.Edges(func(a, b *navmesh.Node, _ float64) {
		ia, okA := index[a]
		ib, okB := index[b]
		if okA && okB {
			overlay.Edges = append(overlay.Edges, [2]int{ia, ib})
		}
	})
	return overlay
}
