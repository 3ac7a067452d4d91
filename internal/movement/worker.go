package movement

import (
	"context"
	"math"
	"math/rand"

	"github.com/GroggNorvek/RaSpider/internal/colony"
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/random"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/navigation"
)

// TaskSource is the part of the task system a worker drives.
type TaskSource interface {
	CurrentOrder(agent int) *webtask.Order
	Contribute(agent int, amount float64) float64
	Abandon(ctx context.Context, agent int)
}

type WorkerConfig struct {
	SilkPerTick  float64 `yaml:"silkPerTick" json:"silkPerTick"`
	RoamInterval int     `yaml:"roamInterval" json:"roamInterval"`
	// WorkRadius is how close a worker must be to the progress point to spin.
	WorkRadius float64 `yaml:"workRadius" json:"workRadius"`
	// DirectRadius skips pathfinding for targets this close.
	DirectRadius float64 `yaml:"directRadius" json:"directRadius"`
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		SilkPerTick:  0.5,
		RoamInterval: 180,
		WorkRadius:   2,
		DirectRadius: 30,
	}
}

func (c WorkerConfig) Normalized() WorkerConfig {
	def := DefaultWorkerConfig()
	if c.SilkPerTick <= 0 {
		c.SilkPerTick = def.SilkPerTick
	}
	if c.RoamInterval <= 0 {
		c.RoamInterval = def.RoamInterval
	}
	if c.WorkRadius <= 0 {
		c.WorkRadius = def.WorkRadius
	}
	if c.DirectRadius < 0 {
		c.DirectRadius = 0
	}
	return c
}

type Mode string

const (
	ModeIdle Mode = "idle"
	ModeRoam Mode = "roam"
	ModeTask Mode = "task"
	ModeSpin Mode = "spin"
)

// WorkerController moves one worker. Task-drive always wins over roaming.
type WorkerController struct {
	spider   *colony.Spider
	tasks    TaskSource
	nav      Navigator
	query    *SurfaceQuery
	rng      *rand.Rand
	cfg      WorkerConfig
	pub      logging.Publisher
	follower PathFollower
	mode     Mode

	roamTimer int
	heading   float64
}

// NewWorkerController wires a worker. nav may be nil, in which case task
// targets are approached in a straight line and roaming drifts along the
// detected surface.
func NewWorkerController(spider *colony.Spider, tasks TaskSource, nav Navigator, query *SurfaceQuery, rng *rand.Rand, cfg WorkerConfig, pub logging.Publisher) *WorkerController {
	spacing := 15.0
	if nav != nil {
		spacing = nav.Spacing()
	}
	if rng == nil {
		rng = random.New(random.DefaultSeed, "worker")
	}
	return &WorkerController{
		spider:   spider,
		tasks:    tasks,
		nav:      nav,
		query:    query,
		rng:      rng,
		cfg:      cfg.Normalized(),
		pub:      pub,
		follower: NewPathFollower(spacing),
		mode:     ModeIdle,
	}
}

func (c *WorkerController) Spider() *colony.Spider { return c.spider }

func (c *WorkerController) Mode() Mode { return c.mode }

// Path returns the waypoints still ahead of the worker.
func (c *WorkerController) Path() []geometry.Vec2 {
	if !c.follower.Active() {
		return nil
	}
	return c.follower.Path[c.follower.Index:]
}

func (c *WorkerController) Update(ctx context.Context, tick uint64) {
	if c == nil || c.spider == nil {
		return
	}
	if c.tasks != nil {
		if order := c.tasks.CurrentOrder(c.spider.ID); order != nil && order.Status != webtask.StatusComplete {
			c.drive(ctx, tick, order)
			return
		}
	}
	c.roam(ctx, tick)
}

func (c *WorkerController) setMode(mode Mode) {
	if c.mode == mode {
		return
	}
	if mode == ModeRoam || c.mode == ModeRoam {
		c.follower.Clear()
		c.roamTimer = 0
	}
	c.mode = mode
}

func (c *WorkerController) drive(ctx context.Context, tick uint64, order *webtask.Order) {
	target := order.ProgressPoint()
	dist := c.spider.Pos.Dist(target)
	if dist <= c.cfg.WorkRadius {
		c.setMode(ModeSpin)
		c.spin(ctx, order)
		return
	}
	c.setMode(ModeTask)
	if c.nav == nil || dist <= c.cfg.DirectRadius {
		c.follower.Clear()
		c.spider.Pos = c.spider.Pos.Toward(target, c.spider.Speed)
		return
	}
	ok, searched := c.follower.Ensure(c.nav, c.spider.Pos, target, tick)
	if !ok {
		if searched {
			navigation.PathUnavailable(ctx, c.pub, tick, logging.Spider(c.spider.ID), navigation.PathUnavailablePayload{
				FromX: c.spider.Pos.X,
				FromY: c.spider.Pos.Y,
				ToX:   target.X,
				ToY:   target.Y,
			}, nil)
		}
		c.spider.Pos = c.spider.Pos.Toward(target, c.spider.Speed)
		return
	}
	next, status := c.follower.Step(c.spider.Pos, c.spider.Speed)
	switch status {
	case FollowArrived, FollowIdle:
		c.follower.Clear()
		next = c.spider.Pos.Toward(target, c.spider.Speed)
	case FollowStalled:
		c.follower.Clear()
	}
	c.spider.Pos = next
}

// spin pays silk into the order and then walks the worker along the fresh
// thread towards the new progress point.
func (c *WorkerController) spin(ctx context.Context, order *webtask.Order) {
	want := math.Min(c.cfg.SilkPerTick, c.spider.Silk)
	if want > 0 {
		consumed := c.tasks.Contribute(c.spider.ID, want)
		c.spider.SpendSilk(consumed)
	}
	if order.Status == webtask.StatusComplete {
		return
	}
	if c.spider.Silk <= 0 {
		c.tasks.Abandon(ctx, c.spider.ID)
		c.setMode(ModeIdle)
		return
	}
	c.spider.Pos = c.spider.Pos.Toward(order.ProgressPoint(), c.spider.Speed)
}

func (c *WorkerController) roam(ctx context.Context, tick uint64) {
	c.setMode(ModeRoam)
	c.roamTimer--
	if c.nav == nil {
		c.drift()
		return
	}

	retarget := c.roamTimer <= 0 || !c.follower.Active() || c.follower.Generation != c.nav.Generation()
	if retarget {
		c.roamTimer = c.cfg.RoamInterval
		node := c.nav.RandomWalkable(c.rng)
		if node == nil {
			c.follower.Clear()
			return
		}
		if ok, _ := c.follower.Ensure(c.nav, c.spider.Pos, node.Pos, tick); !ok {
			return
		}
	}
	next, status := c.follower.Step(c.spider.Pos, c.spider.Speed)
	switch status {
	case FollowArrived, FollowStalled, FollowIdle:
		c.follower.Clear()
		c.roamTimer = 0
		return
	}
	c.spider.Pos = c.constrain(next)
}

// drift is the meshless roam: walk on a random heading, turning whenever the
// surface refuses the step or the interval runs out.
func (c *WorkerController) drift() {
	if c.roamTimer <= 0 {
		c.roamTimer = c.cfg.RoamInterval
		c.heading = random.Angle(c.rng)
	}
	step := geometry.Vec2{X: math.Cos(c.heading), Y: math.Sin(c.heading)}.Scale(c.spider.Speed)
	next := c.spider.Pos.Add(step)
	if c.query == nil {
		c.spider.Pos = next
		return
	}
	constrained, ok := c.query.Constrain(c.spider.Pos, next)
	if !ok {
		c.heading += math.Pi
	}
	c.spider.Pos = constrained
}

func (c *WorkerController) constrain(next geometry.Vec2) geometry.Vec2 {
	if c.query == nil {
		return next
	}
	constrained, _ := c.query.Constrain(c.spider.Pos, next)
	return constrained
}
