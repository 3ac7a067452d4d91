// Package webtask turns player-drawn segments into build orders, hands them
// to worker spiders, accounts for the silk they spin and finalises finished
// threads into permanent webs registered with the navigation mesh.
package webtask

import (
	"context"
	"errors"
	"math"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/navmesh"
	"github.com/GroggNorvek/RaSpider/internal/surface"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/construction"
	"github.com/GroggNorvek/RaSpider/logging/navigation"
)

const (
	DefaultUnitLength  = 10.0
	WebQueryRadius     = 10.0
	SurfaceQueryRadius = 15.0
	TrunkEdgeMargin    = 30.0
	NestDragMargin     = 1.1
)

var (
	ErrDegenerateOrder = errors.New("webtask: order endpoints coincide")
	ErrNoSurface       = errors.New("webtask: drag endpoint is not on a surface")
)

// Candidate is the view of a spider the assignment sweep needs.
type Candidate struct {
	ID     int
	Pos    geometry.Vec2
	Silk   float64
	Worker bool
}

type Roster interface {
	Candidates() []Candidate
}

// Mesh is the part of the navigation mesh the task system mutates.
type Mesh interface {
	AddConstructionSite(order int, start, end geometry.Vec2) []*navmesh.Node
	RemoveConstructionSite(order int) bool
	AddWeb(h surface.Handle) int
	Generation() uint64
}

type Config struct {
	UnitLength     float64 `yaml:"unitLength"`
	LarderCapacity int     `yaml:"larderCapacity"`
}

func DefaultConfig() Config {
	return Config{UnitLength: DefaultUnitLength, LarderCapacity: DefaultLarderCapacity}
}

func (c Config) Normalized() Config {
	if c.UnitLength <= 0 {
		c.UnitLength = DefaultUnitLength
	}
	if c.LarderCapacity <= 0 {
		c.LarderCapacity = DefaultLarderCapacity
	}
	return c
}

// System owns every active order and every finished web.
type System struct {
	cfg      Config
	surfaces *surface.Table
	mesh     Mesh
	roster   Roster
	pub      logging.Publisher

	orders      []*Order
	webs        []*Web
	assignments *Assignments
	nextOrderID int
	tick        uint64
}

// NewSystem wires the task system. mesh may be nil, in which case orders
// are tracked without construction sites and webs are not linked into any
// mesh.
func NewSystem(cfg Config, surfaces *surface.Table, mesh Mesh, roster Roster, pub logging.Publisher) *System {
	if surfaces == nil {
		surfaces = surface.NewTable()
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &System{
		cfg:         cfg.Normalized(),
		surfaces:    surfaces,
		mesh:        mesh,
		roster:      roster,
		pub:         pub,
		assignments: NewAssignments(),
		nextOrderID: 1,
	}
}

// SetTick stamps subsequent events with the simulation tick.
func (s *System) SetTick(tick uint64) { s.tick = tick }

func (s *System) Orders() []*Order { return s.orders }

func (s *System) Webs() []*Web { return s.webs }

func (s *System) Assignments() *Assignments { return s.assignments }

func (s *System) Order(id int) *Order {
	for _, o := range s.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// CurrentOrder returns the order the agent is driving, if any.
func (s *System) CurrentOrder(agent int) *Order {
	id, ok := s.assignments.OrderOf(agent)
	if !ok {
		return nil
	}
	return s.Order(id)
}

// CreateOrder registers an order, places its construction site and tries to
// assign a spider straight away.
func (s *System) CreateOrder(ctx context.Context, start, end geometry.Vec2, typ OrderType) (*Order, error) {
	if start.Dist(end) == 0 {
		construction.OrderRejected(ctx, s.pub, s.tick, construction.OrderRejectedPayload{Reason: ErrDegenerateOrder.Error()}, nil)
		return nil, ErrDegenerateOrder
	}
	if typ != Nest {
		typ = Regular
	}
	order := newOrder(s.nextOrderID, start, end, typ, s.cfg.UnitLength)
	s.nextOrderID++
	s.orders = append(s.orders, order)
	construction.OrderCreated(ctx, s.pub, s.tick, logging.Order(order.ID), construction.OrderCreatedPayload{
		Type:         string(order.Type),
		Length:       order.Length,
		SilkRequired: order.SilkRequired,
	}, nil)

	if s.mesh != nil {
		nodes := s.mesh.AddConstructionSite(order.ID, start, end)
		navigation.SiteAdded(ctx, s.pub, s.tick, logging.Order(order.ID), navigation.SitePayload{
			Nodes:      len(nodes),
			Generation: s.mesh.Generation(),
		}, nil)
	}
	s.AssignSpiderToOrder(ctx, order)
	return order, nil
}

// AssignSpiderToOrder links the nearest idle worker with silk, measured to
// the order's start point. It reports whether a spider was assigned.
func (s *System) AssignSpiderToOrder(ctx context.Context, order *Order) bool {
	if order == nil || order.Status == StatusComplete || s.roster == nil {
		return false
	}
	if _, taken := s.assignments.AgentOf(order.ID); taken {
		return false
	}
	var best *Candidate
	bestDist := math.Inf(1)
	for _, c := range s.roster.Candidates() {
		if !c.Worker || c.Silk <= 0 {
			continue
		}
		if _, busy := s.assignments.OrderOf(c.ID); busy {
			continue
		}
		d := c.Pos.Dist(order.Start)
		if d < bestDist {
			cand := c
			best = &cand
			bestDist = d
		}
	}
	if best == nil {
		return false
	}
	s.assignments.Link(order.ID, best.ID)
	order.orient(best.Pos)
	order.Assigned = append(order.Assigned, best.ID)
	order.Status = StatusInProgress
	construction.OrderAssigned(ctx, s.pub, s.tick, logging.Order(order.ID), logging.Spider(best.ID), construction.OrderAssignedPayload{
		Distance: bestDist,
		Silk:     best.Silk,
	}, nil)
	return true
}

// Contribute spins up to amount of silk into the agent's order and returns
// how much was actually consumed. Agents without an order consume nothing.
func (s *System) Contribute(agent int, amount float64) float64 {
	order := s.CurrentOrder(agent)
	if order == nil {
		return 0
	}
	return order.AddSilk(amount)
}

// Abandon releases the agent's order back to pending with an empty assignee
// list so another worker can continue the relay. Near and far stay fixed.
func (s *System) Abandon(ctx context.Context, agent int) {
	order := s.CurrentOrder(agent)
	s.assignments.UnlinkAgent(agent)
	if order == nil || order.Status == StatusComplete {
		return
	}
	order.Status = StatusPending
	order.Assigned = nil
	construction.OrderAbandoned(ctx, s.pub, s.tick, logging.Order(order.ID), logging.Spider(agent), construction.OrderAbandonedPayload{
		Progress:     order.SilkProgress,
		SilkRequired: order.SilkRequired,
	}, nil)
}

// CompleteOrder replaces a finished order with a permanent web. The
// construction site is torn down before the web is linked into the mesh.
func (s *System) CompleteOrder(ctx context.Context, order *Order) *Web {
	if order == nil {
		return nil
	}
	idx := -1
	for i, o := range s.orders {
		if o == order {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	s.orders = append(s.orders[:idx], s.orders[idx+1:]...)
	s.assignments.UnlinkOrder(order.ID)

	web := newWeb(order.Start, order.End, order.Type)
	web.OrderID = order.ID
	if order.Type == Nest {
		web.Larder = NewLarder(s.cfg.LarderCapacity)
	}
	web.Handle = s.surfaces.AddWeb(web.Line())
	web.ID = int(web.Handle)
	s.webs = append(s.webs, web)

	added := 0
	if s.mesh != nil {
		if s.mesh.RemoveConstructionSite(order.ID) {
			navigation.SiteRemoved(ctx, s.pub, s.tick, logging.Order(order.ID), navigation.SitePayload{Generation: s.mesh.Generation()}, nil)
		}
		added = s.mesh.AddWeb(web.Handle)
		navigation.WebLinked(ctx, s.pub, s.tick, logging.Web(web.ID), navigation.WebLinkedPayload{
			NodesTouched: added,
			Generation:   s.mesh.Generation(),
		}, nil)
	}
	construction.OrderCompleted(ctx, s.pub, s.tick, logging.Order(order.ID), logging.Web(web.ID), construction.OrderCompletedPayload{
		Type:       string(order.Type),
		NodesAdded: added,
	}, nil)
	return web
}

// AssignPending retries assignment for every pending order without a
// driving spider, oldest first.
func (s *System) AssignPending(ctx context.Context) int {
	assigned := 0
	for _, order := range s.orders {
		if order.Status != StatusPending {
			continue
		}
		if s.AssignSpiderToOrder(ctx, order) {
			assigned++
		}
	}
	return assigned
}

// FinalizeCompleted turns every complete order into a web.
func (s *System) FinalizeCompleted(ctx context.Context) []*Web {
	var done []*Order
	for _, order := range s.orders {
		if order.Status == StatusComplete {
			done = append(done, order)
		}
	}
	webs := make([]*Web, 0, len(done))
	for _, order := range done {
		if web := s.CompleteOrder(ctx, order); web != nil {
			webs = append(webs, web)
		}
	}
	return webs
}

// Update runs the assignment sweep followed by finalisation.
func (s *System) Update(ctx context.Context) []*Web {
	s.AssignPending(ctx)
	return s.FinalizeCompleted(ctx)
}

// DampVibrations decays web vibration towards rest.
func (s *System) DampVibrations(factor float64) {
	for _, w := range s.webs {
		w.Vibration *= factor
		if math.Abs(w.Vibration) < 0.01 {
			w.Vibration = 0
		}
	}
}
