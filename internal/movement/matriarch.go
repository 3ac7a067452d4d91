package movement

import (
	"math"
	"math/rand"

	"github.com/GroggNorvek/RaSpider/internal/colony"
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/random"
)

type MatriarchConfig struct {
	// JunctionBand is the half-height of the no-go band around each branch
	// junction row.
	JunctionBand float64 `yaml:"junctionBand" json:"junctionBand"`
	// EdgeMargin keeps the walk away from the trunk bark.
	EdgeMargin   float64 `yaml:"edgeMargin" json:"edgeMargin"`
	MinTurnTicks int     `yaml:"minTurnTicks" json:"minTurnTicks"`
	MaxTurnTicks int     `yaml:"maxTurnTicks" json:"maxTurnTicks"`
}

func DefaultMatriarchConfig() MatriarchConfig {
	return MatriarchConfig{JunctionBand: 20, EdgeMargin: 5, MinTurnTicks: 100, MaxTurnTicks: 250}
}

func (c MatriarchConfig) Normalized() MatriarchConfig {
	def := DefaultMatriarchConfig()
	if c.JunctionBand < 0 {
		c.JunctionBand = 0
	}
	if c.EdgeMargin < 0 {
		c.EdgeMargin = 0
	}
	if c.MinTurnTicks <= 0 {
		c.MinTurnTicks = def.MinTurnTicks
	}
	if c.MaxTurnTicks < c.MinTurnTicks {
		c.MaxTurnTicks = c.MinTurnTicks
	}
	return c
}

// MatriarchController keeps the matriarch inside the nest region of the
// trunk. It never touches the mesh or the task system.
type MatriarchController struct {
	spider    *colony.Spider
	region    geometry.Rect
	junctions []float64
	cfg       MatriarchConfig
	rng       *rand.Rand

	heading   geometry.Vec2
	turnTimer int
}

// NewMatriarchController confines the walk to the trunk, narrowed to the
// nest bounds when a nest exists. The spider is moved into the region if it
// starts outside.
func NewMatriarchController(spider *colony.Spider, trunk geometry.Rect, nest *geometry.Ellipse, junctions []float64, rng *rand.Rand, cfg MatriarchConfig) *MatriarchController {
	cfg = cfg.Normalized()
	region := trunk.Inset(cfg.EdgeMargin)
	if nest != nil {
		if overlap, ok := region.Intersect(nest.Bounds()); ok {
			region = overlap
		}
	}
	if rng == nil {
		rng = random.New(random.DefaultSeed, "matriarch")
	}
	c := &MatriarchController{
		spider:    spider,
		region:    region,
		junctions: append([]float64(nil), junctions...),
		cfg:       cfg,
		rng:       rng,
	}
	if spider != nil {
		spider.Pos = region.ClampPoint(spider.Pos)
	}
	return c
}

func (c *MatriarchController) Region() geometry.Rect { return c.region }

func (c *MatriarchController) Spider() *colony.Spider { return c.spider }

func (c *MatriarchController) inBand(y float64) bool {
	for _, row := range c.junctions {
		if math.Abs(y-row) < c.cfg.JunctionBand {
			return true
		}
	}
	return false
}

func (c *MatriarchController) Update(tick uint64) {
	if c == nil || c.spider == nil {
		return
	}
	c.turnTimer--
	if c.turnTimer <= 0 {
		angle := random.Angle(c.rng)
		c.heading = geometry.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
		c.turnTimer = random.IntRange(c.rng, c.cfg.MinTurnTicks, c.cfg.MaxTurnTicks)
	}

	pos := c.spider.Pos
	next := pos.Add(c.heading.Scale(c.spider.Speed))
	if next.X < c.region.X || next.X > c.region.Right() {
		c.heading.X = -c.heading.X
		next.X = pos.X
	}
	if next.Y < c.region.Y || next.Y > c.region.Bottom() {
		c.heading.Y = -c.heading.Y
		next.Y = pos.Y
	}
	if !c.inBand(pos.Y) && c.inBand(next.Y) {
		c.heading.Y = -c.heading.Y
		next.Y = pos.Y
	}
	c.spider.Pos = c.region.ClampPoint(next)
}
