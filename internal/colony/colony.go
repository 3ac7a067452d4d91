// Package colony holds the spider agents and the roster the task system
// assigns work from.
package colony

import (
	"math"
	"math/rand"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/random"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
)

type Role string

const (
	RoleWorker    Role = "worker"
	RoleMatriarch Role = "matriarch"
)

// Spider is a single agent. Silk only ever goes down.
type Spider struct {
	ID      int           `json:"id"`
	Role    Role          `json:"role"`
	Pos     geometry.Vec2 `json:"pos"`
	Silk    float64       `json:"silk"`
	MaxSilk float64       `json:"maxSilk"`
	Speed   float64       `json:"speed"`
}

func (s *Spider) IsWorker() bool {
	return s != nil && s.Role == RoleWorker
}

// SpendSilk deducts up to amount and returns what was actually spent.
func (s *Spider) SpendSilk(amount float64) float64 {
	if s == nil || amount <= 0 || s.Silk <= 0 {
		return 0
	}
	spent := math.Min(amount, s.Silk)
	s.Silk -= spent
	if s.Silk < 1e-9 {
		s.Silk = 0
	}
	return spent
}

type Config struct {
	Workers        int     `yaml:"workers" json:"workers"`
	WorkerSilk     float64 `yaml:"workerSilk" json:"workerSilk"`
	WorkerSpeed    float64 `yaml:"workerSpeed" json:"workerSpeed"`
	MatriarchSpeed float64 `yaml:"matriarchSpeed" json:"matriarchSpeed"`
	// SpawnSpread is the fraction of the nest radii workers spawn within.
	SpawnSpread float64 `yaml:"spawnSpread" json:"spawnSpread"`
}

func DefaultConfig() Config {
	return Config{
		Workers:        4,
		WorkerSilk:     20,
		WorkerSpeed:    1.2,
		MatriarchSpeed: 0.4,
		SpawnSpread:    0.5,
	}
}

func (c Config) Normalized() Config {
	def := DefaultConfig()
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.WorkerSilk <= 0 {
		c.WorkerSilk = def.WorkerSilk
	}
	if c.WorkerSpeed <= 0 {
		c.WorkerSpeed = def.WorkerSpeed
	}
	if c.MatriarchSpeed <= 0 {
		c.MatriarchSpeed = def.MatriarchSpeed
	}
	if c.SpawnSpread <= 0 || c.SpawnSpread > 1 {
		c.SpawnSpread = def.SpawnSpread
	}
	return c
}

type Colony struct {
	spiders []*Spider
	nextID  int
}

func New() *Colony {
	return &Colony{nextID: 1}
}

// Add registers a spider and returns it. Ids start at 1.
func (c *Colony) Add(role Role, pos geometry.Vec2, silk, speed float64) *Spider {
	spider := &Spider{
		ID:      c.nextID,
		Role:    role,
		Pos:     pos,
		Silk:    silk,
		MaxSilk: silk,
		Speed:   speed,
	}
	c.nextID++
	c.spiders = append(c.spiders, spider)
	return spider
}

func (c *Colony) Spiders() []*Spider {
	if c == nil {
		return nil
	}
	return c.spiders
}

func (c *Colony) Len() int {
	if c == nil {
		return 0
	}
	return len(c.spiders)
}

func (c *Colony) Spider(id int) *Spider {
	if c == nil {
		return nil
	}
	for _, s := range c.spiders {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (c *Colony) Workers() []*Spider {
	if c == nil {
		return nil
	}
	out := make([]*Spider, 0, len(c.spiders))
	for _, s := range c.spiders {
		if s.IsWorker() {
			out = append(out, s)
		}
	}
	return out
}

// Matriarch returns the first spider with the matriarch role.
func (c *Colony) Matriarch() *Spider {
	if c == nil {
		return nil
	}
	for _, s := range c.spiders {
		if s.Role == RoleMatriarch {
			return s
		}
	}
	return nil
}

// Candidates exposes every spider to the assignment sweep in id order.
func (c *Colony) Candidates() []webtask.Candidate {
	if c == nil {
		return nil
	}
	out := make([]webtask.Candidate, 0, len(c.spiders))
	for _, s := range c.spiders {
		out = append(out, webtask.Candidate{
			ID:     s.ID,
			Pos:    s.Pos,
			Silk:   s.Silk,
			Worker: s.IsWorker(),
		})
	}
	return out
}

// TotalSilk sums the remaining silk of every worker.
func (c *Colony) TotalSilk() float64 {
	total := 0.0
	for _, s := range c.Workers() {
		total += s.Silk
	}
	return total
}

// Populate places the matriarch at the nest centre and scatters the workers
// inside the inner part of the nest.
func Populate(cfg Config, nest geometry.Ellipse, rng *rand.Rand) *Colony {
	cfg = cfg.Normalized()
	c := New()
	c.Add(RoleMatriarch, nest.Center, 0, cfg.MatriarchSpeed)
	for i := 0; i < cfg.Workers; i++ {
		angle := random.Angle(rng)
		radius := math.Sqrt(random.Float(rng)) * cfg.SpawnSpread
		pos := geometry.Vec2{
			X: nest.Center.X + math.Cos(angle)*nest.RX*radius,
			Y: nest.Center.Y + math.Sin(angle)*nest.RY*radius,
		}
		c.Add(RoleWorker, pos, cfg.WorkerSilk, cfg.WorkerSpeed)
	}
	return c
}
