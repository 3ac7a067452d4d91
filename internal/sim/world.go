// Package sim owns the colony world and advances it one fixed step at a
// time. Nothing here is safe for concurrent use; the hub drives it from a
// single goroutine and only the command buffer is shared.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GroggNorvek/RaSpider/internal/colony"
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/movement"
	"github.com/GroggNorvek/RaSpider/internal/navmesh"
	"github.com/GroggNorvek/RaSpider/internal/prey"
	"github.com/GroggNorvek/RaSpider/internal/random"
	"github.com/GroggNorvek/RaSpider/internal/surface"
	"github.com/GroggNorvek/RaSpider/internal/tree"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/navigation"
	"github.com/GroggNorvek/RaSpider/logging/simulation"
)

const DefaultVibrationDamping = 0.9

var ErrUnknownCommand = errors.New("sim: unknown command")

type Config struct {
	Seed      string                   `yaml:"seed" json:"seed"`
	Layout    tree.Layout              `yaml:"layout" json:"layout"`
	Nav       navmesh.Config           `yaml:"nav" json:"nav"`
	Colony    colony.Config            `yaml:"colony" json:"colony"`
	Tasks     webtask.Config           `yaml:"tasks" json:"tasks"`
	Worker    movement.WorkerConfig    `yaml:"worker" json:"worker"`
	Matriarch movement.MatriarchConfig `yaml:"matriarch" json:"matriarch"`
	Prey      prey.Config              `yaml:"prey" json:"prey"`
	// NavEnabled builds the navigation mesh. Without it workers approach
	// their orders in a straight line.
	NavEnabled       bool    `yaml:"navEnabled" json:"navEnabled"`
	VibrationDamping float64 `yaml:"vibrationDamping" json:"vibrationDamping"`
}

func DefaultConfig() Config {
	return Config{
		Seed:             random.DefaultSeed,
		Layout:           tree.DefaultLayout(),
		Nav:              navmesh.DefaultConfig(),
		Colony:           colony.DefaultConfig(),
		Tasks:            webtask.DefaultConfig(),
		Worker:           movement.DefaultWorkerConfig(),
		Matriarch:        movement.DefaultMatriarchConfig(),
		Prey:             prey.DefaultConfig(),
		NavEnabled:       true,
		VibrationDamping: DefaultVibrationDamping,
	}
}

// Normalized fills defaults and keeps the mesh and the prey area matched to
// the layout canvas.
func (c Config) Normalized() Config {
	out := c
	out.Seed = strings.TrimSpace(out.Seed)
	if out.Seed == "" {
		out.Seed = random.DefaultSeed
	}
	out.Layout = out.Layout.Normalized()
	out.Nav.Width = out.Layout.Width
	out.Nav.Height = out.Layout.Height
	out.Nav = out.Nav.Normalized()
	out.Colony = out.Colony.Normalized()
	out.Tasks = out.Tasks.Normalized()
	out.Worker = out.Worker.Normalized()
	out.Matriarch = out.Matriarch.Normalized()
	out.Prey.Width = out.Layout.Width
	out.Prey.Height = out.Layout.Height
	out.Prey = out.Prey.Normalized()
	if out.VibrationDamping <= 0 || out.VibrationDamping >= 1 {
		out.VibrationDamping = DefaultVibrationDamping
	}
	return out
}

// World is the single owner of every simulation structure.
type World struct {
	cfg       Config
	tree      tree.Tree
	surfaces  *surface.Table
	mesh      *navmesh.Mesh
	tasks     *webtask.System
	colony    *colony.Colony
	query     *movement.SurfaceQuery
	workers   []*movement.WorkerController
	matriarch *movement.MatriarchController
	prey      *prey.Manager
	pub       logging.Publisher

	tick  uint64
	debug bool
}

// NewWorld generates the tree from the seed, builds the mesh and populates
// the colony.
func NewWorld(ctx context.Context, cfg Config, pub logging.Publisher) *World {
	cfg = cfg.Normalized()
	if pub == nil {
		pub = logging.NopPublisher()
	}
	t := tree.Generate(cfg.Layout, cfg.Seed)
	surfaces := t.Surfaces()

	w := &World{
		cfg:      cfg,
		tree:     t,
		surfaces: surfaces,
		pub:      pub,
	}

	var taskMesh webtask.Mesh
	var nav movement.Navigator
	if cfg.NavEnabled {
		w.mesh = navmesh.Build(surfaces, cfg.Nav)
		taskMesh = w.mesh
		nav = w.mesh
		stats := w.mesh.Stats()
		navigation.MeshBuilt(ctx, pub, 0, navigation.MeshPayload{
			Nodes:      stats.Nodes,
			Walkable:   stats.Walkable,
			Edges:      stats.Edges,
			Sites:      stats.Sites,
			Generation: stats.Generation,
		}, nil)
	}

	nest := tree.NestFor(t.Trunk)
	if t.Nest != nil {
		nest = *t.Nest
	}
	w.colony = colony.Populate(cfg.Colony, nest, random.New(cfg.Seed, "colony"))
	w.tasks = webtask.NewSystem(cfg.Tasks, surfaces, taskMesh, w.colony, pub)
	w.query = movement.NewSurfaceQuery(surfaces, w.tasks)

	for _, spider := range w.colony.Workers() {
		rng := random.New(cfg.Seed, fmt.Sprintf("worker-%d", spider.ID))
		w.workers = append(w.workers, movement.NewWorkerController(spider, w.tasks, nav, w.query, rng, cfg.Worker, pub))
	}
	if m := w.colony.Matriarch(); m != nil {
		w.matriarch = movement.NewMatriarchController(m, t.Trunk, t.Nest, t.JunctionRows(), random.New(cfg.Seed, "matriarch"), cfg.Matriarch)
	}
	w.prey = prey.NewManager(cfg.Prey, w.tasks, random.New(cfg.Seed, "prey"), pub)
	return w
}

func (w *World) Config() Config { return w.cfg }

func (w *World) Tick() uint64 { return w.tick }

func (w *World) Tree() tree.Tree { return w.tree }

func (w *World) Surfaces() *surface.Table { return w.surfaces }

// Mesh returns nil when navigation is disabled.
func (w *World) Mesh() *navmesh.Mesh { return w.mesh }

func (w *World) Tasks() *webtask.System { return w.tasks }

func (w *World) Colony() *colony.Colony { return w.colony }

func (w *World) Prey() *prey.Manager { return w.prey }

func (w *World) Workers() []*movement.WorkerController { return w.workers }

func (w *World) Matriarch() *movement.MatriarchController { return w.matriarch }

func (w *World) Debug() bool { return w.debug }

func (w *World) SetDebug(enabled bool) { w.debug = enabled }

// CreateOrder registers an order at already resolved points.
func (w *World) CreateOrder(ctx context.Context, start, end geometry.Vec2, typ webtask.OrderType) (*webtask.Order, error) {
	w.tasks.SetTick(w.tick)
	return w.tasks.CreateOrder(ctx, start, end, typ)
}

// Drag resolves a drag gesture against the surfaces and creates the order
// it describes.
func (w *World) Drag(ctx context.Context, start, end geometry.Vec2) (*webtask.Order, error) {
	from, to, typ, err := w.tasks.ResolveDrag(start, end)
	if err != nil {
		return nil, err
	}
	return w.CreateOrder(ctx, from, to, typ)
}

// Apply executes staged commands in order. Failures are reported in the
// outcomes and logged; they never stop later commands.
func (w *World) Apply(ctx context.Context, cmds []Command) []CommandOutcome {
	if len(cmds) == 0 {
		return nil
	}
	outcomes := make([]CommandOutcome, 0, len(cmds))
	for _, cmd := range cmds {
		outcome := CommandOutcome{Command: cmd}
		var order *webtask.Order
		switch {
		case cmd.Type == CommandCreateOrder && cmd.Order != nil:
			order, outcome.Err = w.CreateOrder(ctx, cmd.Order.Start, cmd.Order.End, cmd.Order.Type)
		case cmd.Type == CommandDrag && cmd.Drag != nil:
			order, outcome.Err = w.Drag(ctx, cmd.Drag.Start, cmd.Drag.End)
		case cmd.Type == CommandSetDebug && cmd.Debug != nil:
			w.SetDebug(cmd.Debug.Enabled)
		default:
			outcome.Err = ErrUnknownCommand
		}
		if order != nil {
			outcome.OrderID = order.ID
		}
		if outcome.Err != nil {
			simulation.CommandRejected(ctx, w.pub, w.tick, logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindSession}, simulation.CommandRejectedPayload{
				Command: string(cmd.Type),
				Reason:  outcome.Err.Error(),
			}, nil)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Step advances one tick: assignment sweep, worker and matriarch
// controllers, prey, then finished orders become webs.
func (w *World) Step(ctx context.Context) {
	w.tick++
	w.tasks.SetTick(w.tick)
	w.tasks.AssignPending(ctx)
	for _, worker := range w.workers {
		worker.Update(ctx, w.tick)
	}
	if w.matriarch != nil {
		w.matriarch.Update(w.tick)
	}
	w.prey.Update(ctx, w.tick)
	w.tasks.FinalizeCompleted(ctx)
	w.tasks.DampVibrations(w.cfg.VibrationDamping)
}
