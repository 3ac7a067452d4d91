// Package navmesh samples the walkable structure of the world onto a uniform
// grid, links compatible neighbours and answers shortest-path queries. The
// mesh is mutated in place when webs are spun and when construction sites
// come and go; every mutation bumps Generation so cached paths can be
// discarded.
package navmesh

import (
	"math"
	"math/rand"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/surface"
)

const (
	DefaultSpacing         = 15.0
	DefaultBranchTolerance = 5.0
	DefaultTouchFactor     = 1.5
)

// Config controls grid sampling.
type Config struct {
	Width           float64 `json:"width" yaml:"width"`
	Height          float64 `json:"height" yaml:"height"`
	Spacing         float64 `json:"spacing" yaml:"spacing"`
	BranchTolerance float64 `json:"branchTolerance" yaml:"branchTolerance"`
	TouchFactor     float64 `json:"touchFactor" yaml:"touchFactor"`
}

func DefaultConfig() Config {
	return Config{
		Width:           1200,
		Height:          800,
		Spacing:         DefaultSpacing,
		BranchTolerance: DefaultBranchTolerance,
		TouchFactor:     DefaultTouchFactor,
	}
}

func (cfg Config) Normalized() Config {
	out := cfg
	if out.Spacing <= 0 {
		out.Spacing = DefaultSpacing
	}
	if out.Width <= 0 {
		out.Width = out.Spacing
	}
	if out.Height <= 0 {
		out.Height = out.Spacing
	}
	if out.BranchTolerance < 0 {
		out.BranchTolerance = 0
	}
	if out.TouchFactor <= 0 {
		out.TouchFactor = DefaultTouchFactor
	}
	return out
}

type cell struct {
	col int
	row int
}

var neighborOffsets = [...]cell{
	{col: 0, row: -1},
	{col: 1, row: 0},
	{col: 0, row: 1},
	{col: -1, row: 0},
	{col: 1, row: -1},
	{col: 1, row: 1},
	{col: -1, row: 1},
	{col: -1, row: -1},
}

// Edge is a directed link to a neighbouring node.
type Edge struct {
	To       *Node
	Distance float64
}

// Node is one grid sample. Surface is a weak reference into the surface
// table; the node never owns the surface.
type Node struct {
	ID        int
	Col       int
	Row       int
	Pos       geometry.Vec2
	Surface   surface.Ref
	Walkable  bool
	Neighbors []Edge

	walkIndex int

	// A* scratch, reset before every search.
	g       float64
	h       float64
	f       float64
	parent  *Node
	open    bool
	closed  bool
	heapIdx int
	seq     int
}

func (n *Node) hasEdgeTo(other *Node) bool {
	for _, e := range n.Neighbors {
		if e.To == other {
			return true
		}
	}
	return false
}

func (n *Node) dropEdgeTo(other *Node) {
	kept := n.Neighbors[:0]
	for _, e := range n.Neighbors {
		if e.To != other {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(n.Neighbors); i++ {
		n.Neighbors[i] = Edge{}
	}
	n.Neighbors = kept
}

type constructionSite struct {
	order int
	nodes []*Node
	prior map[*Node]surface.Ref
}

// Mesh owns every node of the grid.
type Mesh struct {
	cfg        Config
	surfaces   *surface.Table
	cols       int
	rows       int
	nodes      []*Node
	lookup     map[cell]*Node
	walkable   []*Node
	sites      map[int]*constructionSite
	generation uint64
}

// Build samples the grid at x = 0, s, 2s, ... < width (and likewise for y),
// classifies every sample against the static surfaces and links walkable
// neighbours.
func Build(surfaces *surface.Table, cfg Config) *Mesh {
	cfg = cfg.Normalized()
	if surfaces == nil {
		surfaces = surface.NewTable()
	}
	cols := int(math.Ceil(cfg.Width / cfg.Spacing))
	rows := int(math.Ceil(cfg.Height / cfg.Spacing))
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	m := &Mesh{
		cfg:      cfg,
		surfaces: surfaces,
		cols:     cols,
		rows:     rows,
		nodes:    make([]*Node, 0, cols*rows),
		lookup:   make(map[cell]*Node, cols*rows),
		sites:    make(map[int]*constructionSite),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			node := &Node{
				ID:        len(m.nodes),
				Col:       col,
				Row:       row,
				Pos:       geometry.Vec2{X: float64(col) * cfg.Spacing, Y: float64(row) * cfg.Spacing},
				Surface:   surface.NoneRef,
				walkIndex: -1,
				heapIdx:   -1,
			}
			m.nodes = append(m.nodes, node)
			m.lookup[cell{col: col, row: row}] = node
			if ref := m.classifyStatic(node.Pos); !ref.IsNone() {
				node.Surface = ref
				m.setWalkable(node, true)
			}
		}
	}
	for _, node := range m.walkable {
		node.Neighbors = m.connectionsFor(node)
	}
	m.generation++
	return m
}

// classifyStatic resolves the tree surface at p. Priority is nest, trunk,
// then the nearest branch within half its thickness plus the tolerance.
func (m *Mesh) classifyStatic(p geometry.Vec2) surface.Ref {
	for i := 0; i < m.surfaces.NestCount(); i++ {
		if nest, ok := m.surfaces.Nest(surface.Handle(i)); ok && nest.Contains(p, 1) {
			return surface.NestRef(surface.Handle(i))
		}
	}
	if trunk, ok := m.surfaces.Trunk(); ok && trunk.Contains(p) {
		return surface.TrunkRef()
	}
	best := surface.NoneRef
	bestDist := math.Inf(1)
	for i := 0; i < m.surfaces.BranchCount(); i++ {
		line, ok := m.surfaces.Branch(surface.Handle(i))
		if !ok {
			continue
		}
		d := line.Distance(p)
		if d <= line.Thickness/2+m.cfg.BranchTolerance && d < bestDist {
			best = surface.BranchRef(surface.Handle(i))
			bestDist = d
		}
	}
	return best
}

// CanConnect reports whether an edge may join a and b. Nodes on the same
// concrete surface always connect. Webs and construction sites bridge to
// anything within touch distance, as do trunk-branch and trunk-nest pairs.
// Everything else, notably two different branches, stays apart.
func (m *Mesh) CanConnect(a, b *Node) bool {
	if a == nil || b == nil || a == b || !a.Walkable || !b.Walkable {
		return false
	}
	ka, kb := a.Surface.Kind, b.Surface.Kind
	if ka == surface.None || kb == surface.None {
		return false
	}
	if a.Surface.Same(b.Surface) {
		return true
	}
	touching := a.Pos.Dist(b.Pos) < m.cfg.TouchFactor*m.cfg.Spacing
	if ka.Bridges() || kb.Bridges() {
		return touching
	}
	if pairOf(ka, kb, surface.Trunk, surface.Branch) || pairOf(ka, kb, surface.Trunk, surface.Nest) {
		return touching
	}
	return false
}

func pairOf(a, b, x, y surface.Kind) bool {
	return (a == x && b == y) || (a == y && b == x)
}

func (m *Mesh) connectionsFor(node *Node) []Edge {
	if !node.Walkable {
		return nil
	}
	var edges []Edge
	for _, off := range neighborOffsets {
		other := m.lookup[cell{col: node.Col + off.col, row: node.Row + off.row}]
		if other == nil || !m.CanConnect(node, other) {
			continue
		}
		edges = append(edges, Edge{To: other, Distance: node.Pos.Dist(other.Pos)})
	}
	return edges
}

// relink recomputes adjacency for the changed nodes and repairs the reverse
// edges held by their grid neighbours, so adjacency stays symmetric and a
// node that stopped being walkable loses every incoming edge.
func (m *Mesh) relink(changed []*Node) {
	inSet := make(map[*Node]struct{}, len(changed))
	for _, node := range changed {
		inSet[node] = struct{}{}
	}
	for _, node := range changed {
		node.Neighbors = m.connectionsFor(node)
	}
	for _, node := range changed {
		for _, off := range neighborOffsets {
			other := m.lookup[cell{col: node.Col + off.col, row: node.Row + off.row}]
			if other == nil {
				continue
			}
			if _, same := inSet[other]; same {
				continue
			}
			other.dropEdgeTo(node)
			if m.CanConnect(other, node) {
				other.Neighbors = append(other.Neighbors, Edge{To: node, Distance: other.Pos.Dist(node.Pos)})
			}
		}
	}
	m.generation++
}

func (m *Mesh) setWalkable(node *Node, walkable bool) {
	if node.Walkable == walkable {
		return
	}
	node.Walkable = walkable
	if walkable {
		node.walkIndex = len(m.walkable)
		m.walkable = append(m.walkable, node)
		return
	}
	last := len(m.walkable) - 1
	idx := node.walkIndex
	if idx >= 0 && idx <= last {
		m.walkable[idx] = m.walkable[last]
		m.walkable[idx].walkIndex = idx
		m.walkable[last] = nil
		m.walkable = m.walkable[:last]
	}
	node.walkIndex = -1
}

// snap returns the grid cell nearest to p, clamped to the grid.
func (m *Mesh) snap(p geometry.Vec2) cell {
	col := int(math.Round(p.X / m.cfg.Spacing))
	row := int(math.Round(p.Y / m.cfg.Spacing))
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	if col >= m.cols {
		col = m.cols - 1
	}
	if row >= m.rows {
		row = m.rows - 1
	}
	return cell{col: col, row: row}
}

func (m *Mesh) inBounds(p geometry.Vec2) bool {
	col := int(math.Round(p.X / m.cfg.Spacing))
	row := int(math.Round(p.Y / m.cfg.Spacing))
	return col >= 0 && row >= 0 && col < m.cols && row < m.rows
}

// AddWeb samples the web line every Spacing units and claims the snapped
// nodes. Nodes already on the trunk, a branch, the nest or another web keep
// their classification but are relinked so they join the new web. Calling
// AddWeb again for the same handle reuses the same nodes. It returns the
// number of distinct nodes touched.
func (m *Mesh) AddWeb(h surface.Handle) int {
	line, ok := m.surfaces.Web(h)
	if !ok {
		return 0
	}
	seg := line.Segment
	steps := int(math.Ceil(seg.Len() / m.cfg.Spacing))
	seen := make(map[*Node]struct{})
	var touched []*Node
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		p := seg.A.Lerp(seg.B, t)
		if !m.inBounds(p) {
			continue
		}
		node := m.lookup[m.snap(p)]
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		switch node.Surface.Kind {
		case surface.None:
			node.Surface = surface.WebRef(h)
			m.setWalkable(node, true)
		case surface.Construction:
			// Sites over static structure hand the node back on removal.
			if m.classifyStatic(node.Pos).IsNone() {
				node.Surface = surface.WebRef(h)
			}
		}
		touched = append(touched, node)
	}
	if len(touched) > 0 {
		m.relink(touched)
	}
	return len(touched)
}

// AddConstructionSite makes the nodes nearest to an order's endpoints
// walkable and tags them with the order id so a worker can path there
// before any silk exists.
func (m *Mesh) AddConstructionSite(order int, start, end geometry.Vec2) []*Node {
	if existing, ok := m.sites[order]; ok {
		return append([]*Node(nil), existing.nodes...)
	}
	site := &constructionSite{order: order, prior: make(map[*Node]surface.Ref)}
	for _, p := range []geometry.Vec2{start, end} {
		node := m.lookup[m.snap(p)]
		if _, dup := site.prior[node]; dup {
			continue
		}
		site.prior[node] = node.Surface
		site.nodes = append(site.nodes, node)
		node.Surface = surface.ConstructionRef(order)
		m.setWalkable(node, true)
	}
	m.sites[order] = site
	m.relink(site.nodes)
	return append([]*Node(nil), site.nodes...)
}

// RemoveConstructionSite tears down the site for order. A node claimed by
// something else since the site was placed is left alone. Otherwise it goes
// back to whatever static surface covers it, or to the web or live site it
// replaced, and becomes unwalkable only when nothing claims it.
func (m *Mesh) RemoveConstructionSite(order int) bool {
	site, ok := m.sites[order]
	if !ok {
		return false
	}
	delete(m.sites, order)
	var changed []*Node
	own := surface.ConstructionRef(order)
	for _, node := range site.nodes {
		if !node.Surface.Same(own) {
			continue
		}
		ref := m.classifyStatic(node.Pos)
		if ref.IsNone() {
			ref = m.restorable(site.prior[node])
		}
		node.Surface = ref
		m.setWalkable(node, !ref.IsNone())
		changed = append(changed, node)
	}
	if len(changed) > 0 {
		m.relink(changed)
	} else {
		m.generation++
	}
	return true
}

func (m *Mesh) restorable(prior surface.Ref) surface.Ref {
	switch prior.Kind {
	case surface.Web:
		if _, ok := m.surfaces.Web(prior.Handle); ok {
			return prior
		}
	case surface.Construction:
		if _, ok := m.sites[int(prior.Handle)]; ok {
			return prior
		}
	}
	return surface.NoneRef
}

// HasConstructionSite reports whether a site is registered for order.
func (m *Mesh) HasConstructionSite(order int) bool {
	_, ok := m.sites[order]
	return ok
}

// FindNearestNode scans the candidate set linearly. Ties go to the first
// node scanned.
func (m *Mesh) FindNearestNode(p geometry.Vec2, walkableOnly bool) *Node {
	candidates := m.nodes
	if walkableOnly {
		candidates = m.walkable
	}
	var best *Node
	bestDist := math.Inf(1)
	for _, node := range candidates {
		d := node.Pos.Dist(p)
		if d < bestDist {
			best = node
			bestDist = d
		}
	}
	return best
}

// NodeAt returns the node at a grid cell, or nil outside the grid.
func (m *Mesh) NodeAt(col, row int) *Node {
	return m.lookup[cell{col: col, row: row}]
}

// RandomWalkable picks a uniformly random walkable node.
func (m *Mesh) RandomWalkable(rng *rand.Rand) *Node {
	if len(m.walkable) == 0 || rng == nil {
		return nil
	}
	return m.walkable[rng.Intn(len(m.walkable))]
}

func (m *Mesh) Spacing() float64 { return m.cfg.Spacing }

func (m *Mesh) Config() Config { return m.cfg }

func (m *Mesh) Surfaces() *surface.Table { return m.surfaces }

// Generation increases on every mutation of nodes or edges.
func (m *Mesh) Generation() uint64 { return m.generation }

// Nodes exposes every node for read-only iteration.
func (m *Mesh) Nodes() []*Node { return m.nodes }

// Walkable exposes the walkable subset for read-only iteration.
func (m *Mesh) Walkable() []*Node { return m.walkable }

// Edges visits every undirected edge once.
func (m *Mesh) Edges(fn func(a, b *Node, distance float64)) {
	for _, node := range m.walkable {
		for _, e := range node.Neighbors {
			if node.ID < e.To.ID {
				fn(node, e.To, e.Distance)
			}
		}
	}
}

// Stats summarises the mesh for logs and diagnostics.
type Stats struct {
	Nodes      int    `json:"nodes"`
	Walkable   int    `json:"walkable"`
	Edges      int    `json:"edges"`
	Sites      int    `json:"constructionSites"`
	Generation uint64 `json:"generation"`
}

func (m *Mesh) Stats() Stats {
	edges := 0
	m.Edges(func(*Node, *Node, float64) { edges++ })
	return Stats{
		Nodes:      len(m.nodes),
		Walkable:   len(m.walkable),
		Edges:      edges,
		Sites:      len(m.sites),
		Generation: m.generation,
	}
}
