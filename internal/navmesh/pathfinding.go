package navmesh

import (
	"container/heap"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
)

type pathQueue []*Node

func (pq pathQueue) Len() int { return len(pq) }

// Less orders by f and falls back to discovery order so the first-found
// minimum wins ties.
func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f == pq[j].f {
		return pq[i].seq < pq[j].seq
	}
	return pq[i].f < pq[j].f
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].heapIdx = i
	pq[j].heapIdx = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*Node)
	item.heapIdx = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.heapIdx = -1
	*pq = old[:n-1]
	return item
}

func (m *Mesh) resetSearch() {
	for _, node := range m.nodes {
		node.g = 0
		node.h = 0
		node.f = 0
		node.parent = nil
		node.open = false
		node.closed = false
		node.heapIdx = -1
		node.seq = 0
	}
}

// FindPath runs A* from start to end over the mesh edges, with Euclidean
// distance as both edge weight and heuristic. The returned slice runs from
// start to end inclusive. It is empty when either endpoint is nil or not
// walkable, or when no route exists.
func (m *Mesh) FindPath(start, end *Node) []*Node {
	if start == nil || end == nil || !start.Walkable || !end.Walkable {
		return nil
	}
	if start == end {
		return []*Node{start}
	}
	m.resetSearch()

	open := &pathQueue{}
	heap.Init(open)
	seq := 0
	start.h = start.Pos.Dist(end.Pos)
	start.f = start.h
	start.open = true
	heap.Push(open, start)

	for open.Len() > 0 {
		current := heap.Pop(open).(*Node)
		current.open = false
		if current.closed {
			continue
		}
		current.closed = true
		if current == end {
			return reconstructPath(current)
		}
		for _, edge := range current.Neighbors {
			next := edge.To
			if next.closed || !next.Walkable {
				continue
			}
			tentativeG := current.g + edge.Distance
			if next.open && tentativeG >= next.g {
				continue
			}
			next.parent = current
			next.g = tentativeG
			next.h = next.Pos.Dist(end.Pos)
			next.f = tentativeG + next.h
			if next.open {
				heap.Fix(open, next.heapIdx)
				continue
			}
			seq++
			next.seq = seq
			next.open = true
			heap.Push(open, next)
		}
	}
	return nil
}

func reconstructPath(end *Node) []*Node {
	path := make([]*Node, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathBetween snaps both points to their nearest walkable nodes and returns
// the node positions of the route between them.
func (m *Mesh) PathBetween(from, to geometry.Vec2) []geometry.Vec2 {
	start := m.FindNearestNode(from, true)
	end := m.FindNearestNode(to, true)
	nodes := m.FindPath(start, end)
	if len(nodes) == 0 {
		return nil
	}
	out := make([]geometry.Vec2, len(nodes))
	for i, node := range nodes {
		out[i] = node.Pos
	}
	return out
}

// PathCost sums the edge distances along a node path.
func PathCost(path []*Node) float64 {
	cost := 0.0
	for i := 1; i < len(path); i++ {
		cost += path[i-1].Pos.Dist(path[i].Pos)
	}
	return cost
}
