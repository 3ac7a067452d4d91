// Package prey spawns mosquitos at the edge of the play area and traps them
// in whatever web they blunder into.
package prey

import (
	"context"
	"math"
	"math/rand"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/random"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
	"github.com/GroggNorvek/RaSpider/logging"
	preylog "github.com/GroggNorvek/RaSpider/logging/prey"
)

type State string

const (
	StateFlying  State = "FLYING"
	StateTrapped State = "TRAPPED"
	StateStored  State = "STORED"
)

type Edge uint8

const (
	EdgeTop Edge = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
)

type Mosquito struct {
	ID       int           `json:"id"`
	Pos      geometry.Vec2 `json:"pos"`
	Velocity geometry.Vec2 `json:"velocity"`
	Target   geometry.Vec2 `json:"target"`
	State    State         `json:"state"`
	// WebID is the web handle the mosquito is stuck to, or the order id
	// when it hit a partial web.
	WebID   int  `json:"webId,omitempty"`
	Partial bool `json:"partial,omitempty"`

	wobble float64
}

// WebFinder is satisfied by the task system.
type WebFinder interface {
	FindWebAt(p geometry.Vec2) *webtask.Web
}

type Config struct {
	Width         float64 `yaml:"width" json:"width"`
	Height        float64 `yaml:"height" json:"height"`
	SpawnInterval int     `yaml:"spawnInterval" json:"spawnInterval"`
	Speed         float64 `yaml:"speed" json:"speed"`
	WobbleSpeed   float64 `yaml:"wobbleSpeed" json:"wobbleSpeed"`
	WobbleAmount  float64 `yaml:"wobbleAmount" json:"wobbleAmount"`
	SpawnOffset   float64 `yaml:"spawnOffset" json:"spawnOffset"`
	DespawnMargin float64 `yaml:"despawnMargin" json:"despawnMargin"`
	TrapVibration float64 `yaml:"trapVibration" json:"trapVibration"`
	// MaxActive caps the number of flying mosquitos; spawning pauses at the
	// cap. Trapped and stored prey do not count. Zero disables the cap.
	MaxActive int  `yaml:"maxActive" json:"maxActive"`
	Enabled   bool `yaml:"enabled" json:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		Width:         1200,
		Height:        800,
		SpawnInterval: 180,
		Speed:         1.5,
		WobbleSpeed:   0.1,
		WobbleAmount:  0.5,
		SpawnOffset:   20,
		DespawnMargin: 50,
		TrapVibration: 2,
		MaxActive:     64,
		Enabled:       true,
	}
}

func (c Config) Normalized() Config {
	def := DefaultConfig()
	if c.Width <= 0 {
		c.Width = def.Width
	}
	if c.Height <= 0 {
		c.Height = def.Height
	}
	if c.SpawnInterval <= 0 {
		c.SpawnInterval = def.SpawnInterval
	}
	if c.Speed <= 0 {
		c.Speed = def.Speed
	}
	if c.WobbleSpeed < 0 {
		c.WobbleSpeed = 0
	}
	if c.WobbleAmount < 0 {
		c.WobbleAmount = 0
	}
	if c.SpawnOffset < 0 {
		c.SpawnOffset = 0
	}
	if c.DespawnMargin < 0 {
		c.DespawnMargin = 0
	}
	if c.MaxActive < 0 {
		c.MaxActive = 0
	}
	return c
}

// Manager owns every mosquito. It only reads webs through WebFinder and
// touches a web's vibration and larder.
type Manager struct {
	cfg        Config
	webs       WebFinder
	rng        *rand.Rand
	pub        logging.Publisher
	mosquitos  []*Mosquito
	nextID     int
	spawnTimer int
}

func NewManager(cfg Config, webs WebFinder, rng *rand.Rand, pub logging.Publisher) *Manager {
	if rng == nil {
		rng = random.New(random.DefaultSeed, "prey")
	}
	return &Manager{cfg: cfg.Normalized(), webs: webs, rng: rng, pub: pub, nextID: 1}
}

func (m *Manager) Mosquitos() []*Mosquito { return m.mosquitos }

// Counts returns how many mosquitos are in each state.
func (m *Manager) Counts() map[State]int {
	out := map[State]int{StateFlying: 0, StateTrapped: 0, StateStored: 0}
	for _, mq := range m.mosquitos {
		out[mq.State]++
	}
	return out
}

// Spawn launches a mosquito from just outside a random edge towards a
// random point just outside the opposite edge.
func (m *Manager) Spawn(ctx context.Context, tick uint64) *Mosquito {
	edge := Edge(m.rng.Intn(4))
	return m.SpawnFrom(ctx, tick, edge)
}

func (m *Manager) SpawnFrom(ctx context.Context, tick uint64, edge Edge) *Mosquito {
	w, h, off := m.cfg.Width, m.cfg.Height, m.cfg.SpawnOffset
	var start, target geometry.Vec2
	switch edge {
	case EdgeTop:
		start = geometry.Vec2{X: random.Range(m.rng, 0, w), Y: -off}
		target = geometry.Vec2{X: random.Range(m.rng, 0, w), Y: h + off}
	case EdgeRight:
		start = geometry.Vec2{X: w + off, Y: random.Range(m.rng, 0, h)}
		target = geometry.Vec2{X: -off, Y: random.Range(m.rng, 0, h)}
	case EdgeBottom:
		start = geometry.Vec2{X: random.Range(m.rng, 0, w), Y: h + off}
		target = geometry.Vec2{X: random.Range(m.rng, 0, w), Y: -off}
	default:
		start = geometry.Vec2{X: -off, Y: random.Range(m.rng, 0, h)}
		target = geometry.Vec2{X: w + off, Y: random.Range(m.rng, 0, h)}
	}
	mq := &Mosquito{
		ID:     m.nextID,
		Pos:    start,
		Target: target,
		State:  StateFlying,
		wobble: random.Angle(m.rng),
	}
	if d := start.Dist(target); d > 0 {
		mq.Velocity = target.Sub(start).Scale(m.cfg.Speed / d)
	}
	m.nextID++
	m.mosquitos = append(m.mosquitos, mq)
	preylog.Spawned(ctx, m.pub, tick, logging.Prey(mq.ID), preylog.PositionPayload{X: start.X, Y: start.Y})
	return mq
}

// Flying counts the mosquitos still in the air.
func (m *Manager) Flying() int {
	n := 0
	for _, mq := range m.mosquitos {
		if mq.State == StateFlying {
			n++
		}
	}
	return n
}

func (m *Manager) offScreen(p geometry.Vec2) bool {
	margin := m.cfg.DespawnMargin
	return p.X < -margin || p.X > m.cfg.Width+margin || p.Y < -margin || p.Y > m.cfg.Height+margin
}

// Update spawns on schedule, moves flying mosquitos, traps them against
// webs and drops the ones that left the screen.
func (m *Manager) Update(ctx context.Context, tick uint64) {
	if m.cfg.Enabled {
		m.spawnTimer++
		if m.spawnTimer >= m.cfg.SpawnInterval {
			m.spawnTimer = 0
			if m.cfg.MaxActive == 0 || m.Flying() < m.cfg.MaxActive {
				m.Spawn(ctx, tick)
			}
		}
	}

	kept := m.mosquitos[:0]
	for _, mq := range m.mosquitos {
		if mq.State != StateFlying {
			kept = append(kept, mq)
			continue
		}
		mq.wobble += m.cfg.WobbleSpeed
		mq.Pos.X += mq.Velocity.X + math.Cos(mq.wobble)*m.cfg.WobbleAmount
		mq.Pos.Y += mq.Velocity.Y + math.Sin(mq.wobble*1.3)*m.cfg.WobbleAmount

		if m.webs != nil {
			if web := m.webs.FindWebAt(mq.Pos); web != nil {
				m.trap(ctx, tick, mq, web)
			}
		}
		if mq.State == StateFlying && m.offScreen(mq.Pos) {
			preylog.Escaped(ctx, m.pub, tick, logging.Prey(mq.ID), preylog.PositionPayload{X: mq.Pos.X, Y: mq.Pos.Y})
			continue
		}
		kept = append(kept, mq)
	}
	for i := len(kept); i < len(m.mosquitos); i++ {
		m.mosquitos[i] = nil
	}
	m.mosquitos = kept
}

// trap sticks mq to web. A nest web stores it in the larder; a full larder
// lets it fly on untouched.
func (m *Manager) trap(ctx context.Context, tick uint64, mq *Mosquito, web *webtask.Web) {
	if web.Larder != nil && web.Larder.Full() {
		return
	}
	mq.Pos = web.ClosestPoint(mq.Pos)
	mq.Velocity = geometry.Vec2{}
	mq.Partial = web.Partial
	mq.WebID = web.ID
	if web.Partial {
		mq.WebID = web.OrderID
	}
	web.Vibration = m.cfg.TrapVibration

	ref := logging.Web(mq.WebID)
	if web.Partial {
		ref = logging.Order(web.OrderID)
	}
	if web.Larder != nil && web.Larder.Store(mq.ID) {
		mq.State = StateStored
		preylog.Stored(ctx, m.pub, tick, logging.Prey(mq.ID), ref, preylog.StoredPayload{
			Stored:   web.Larder.Len(),
			Capacity: web.Larder.Capacity,
		})
		return
	}
	mq.State = StateTrapped
	preylog.Trapped(ctx, m.pub, tick, logging.Prey(mq.ID), ref, preylog.PositionPayload{X: mq.Pos.X, Y: mq.Pos.Y})
}
