// Package path computes shortest 3D routes over the voxel grid and caches
// them per passability epoch.
//
// The movement graph is 10-connected: 8 planar neighbors on the same
// z-level plus strict vertical up/down edges. Vertical edges exist only
// where the departure or destination cell is climbable (stairs, ladders,
// ramps). Edge cost is the base step length (1 for cardinal, sqrt2 for
// diagonal, 2 for vertical) times the destination cell's terrain
// multiplier, so the 3D Euclidean heuristic never overestimates and the
// returned cost is optimal.
package path

import (
	"container/heap"
	"math"

	"stonedelve.sim/internal/sim/grid"
)

// Failure classifies unsuccessful path requests. Both values are normal,
// recoverable outcomes: callers fall back to another goal rather than
// treating them as errors.
type Failure int

const (
	FailureNone Failure = iota
	// Unreachable: no route connects start and goal under current
	// passability, or the search exceeded its node-expansion budget.
	Unreachable
	// InvalidEndpoint: start or goal is out of bounds or impassable.
	InvalidEndpoint
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "OK"
	case Unreachable:
		return "UNREACHABLE"
	case InvalidEndpoint:
		return "INVALID_ENDPOINT"
	default:
		return "UNKNOWN"
	}
}

// Path is an ordered sequence of voxel steps from start to goal inclusive,
// plus its total cost.
type Path struct {
	Steps []grid.Vec3
	Cost  float64
}

const (
	costCardinal = 1.0
	costDiagonal = math.Sqrt2
	costVertical = 2.0
)

// Engine owns the search plus its cache. Not safe for concurrent use; it is
// owned by the simulation goroutine like everything else in the kernel.
type Engine struct {
	cache         *lruCache
	maxExpansions int

	// Counters for tests and debug overlays.
	Searches  uint64
	CacheHits uint64
}

func NewEngine(cacheCapacity, maxExpansions int) *Engine {
	if cacheCapacity <= 0 {
		cacheCapacity = 1024
	}
	if maxExpansions <= 0 {
		maxExpansions = 4096
	}
	return &Engine{
		cache:         newLRU(cacheCapacity),
		maxExpansions: maxExpansions,
	}
}

// Find returns a shortest path from start to goal, serving repeat requests
// for the same (start, goal, epoch) from cache. Cached entries from older
// epochs can never be returned: the epoch is part of the key and the cache
// purges lazily via LRU eviction.
func (e *Engine) Find(g *grid.Grid, start, goal grid.Vec3) (Path, Failure) {
	if !passable(g, start) || !passable(g, goal) {
		return Path{}, InvalidEndpoint
	}

	epoch := g.Epoch()
	key := cacheKey{start, goal, epoch}
	if p, ok := e.cache.get(key); ok {
		e.CacheHits++
		return clonePath(p), FailureNone
	}

	p, fail := e.search(g, start, goal)
	if fail != FailureNone {
		return Path{}, fail
	}
	// Key under the epoch active at search completion; a mid-search bump is
	// impossible here (single goroutine), but the read is deliberate.
	e.cache.put(cacheKey{start, goal, g.Epoch()}, clonePath(p))
	return p, FailureNone
}

type node struct {
	pos    grid.Vec3
	g, h   float64
	seq    int // insertion order, final tie-break
	index  int // heap index
	parent *node
	closed bool
}

type frontier []*node

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	fi, fj := f[i].g+f[i].h, f[j].g+f[j].h
	if fi != fj {
		return fi < fj
	}
	// Equal f: prefer the lower heuristic, then earlier insertion, so
	// identical inputs yield identical paths.
	if f[i].h != f[j].h {
		return f[i].h < f[j].h
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}
func (f *frontier) Push(x any) {
	n := x.(*node)
	n.index = len(*f)
	*f = append(*f, n)
}
func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return n
}

func (e *Engine) search(g *grid.Grid, start, goal grid.Vec3) (Path, Failure) {
	e.Searches++

	nodes := map[grid.Vec3]*node{}
	open := frontier{}
	heap.Init(&open)

	seq := 0
	sn := &node{pos: start, g: 0, h: heuristic(start, goal), seq: seq}
	nodes[start] = sn
	heap.Push(&open, sn)

	expansions := 0
	for open.Len() > 0 {
		cur := heap.Pop(&open).(*node)
		if cur.closed {
			continue
		}
		cur.closed = true

		if cur.pos == goal {
			return reconstruct(cur), FailureNone
		}

		expansions++
		if expansions > e.maxExpansions {
			// Budget exhausted: bounded search guarantees the tick budget.
			return Path{}, Unreachable
		}

		for _, nb := range neighbors(g, cur.pos) {
			step := cur.g + edgeCost(g, cur.pos, nb)
			n, ok := nodes[nb]
			if !ok {
				seq++
				n = &node{pos: nb, g: step, h: heuristic(nb, goal), seq: seq, parent: cur}
				nodes[nb] = n
				heap.Push(&open, n)
				continue
			}
			if n.closed || step >= n.g {
				continue
			}
			n.g = step
			n.parent = cur
			heap.Fix(&open, n.index)
		}
	}
	return Path{}, Unreachable
}

// neighbors lists traversable successors in a fixed order (planar ring,
// then up, then down).
func neighbors(g *grid.Grid, v grid.Vec3) []grid.Vec3 {
	out := make([]grid.Vec3, 0, 10)
	for _, off := range planarSteps {
		n := grid.Vec3{X: v.X + off[0], Y: v.Y + off[1], Z: v.Z}
		if traversable(g, n) {
			out = append(out, n)
		}
	}
	up := grid.Vec3{X: v.X, Y: v.Y, Z: v.Z + 1}
	if traversable(g, up) && (g.Climbable(v) || g.Climbable(up)) {
		out = append(out, up)
	}
	down := grid.Vec3{X: v.X, Y: v.Y, Z: v.Z - 1}
	if traversable(g, down) && (g.Climbable(v) || g.Climbable(down)) {
		out = append(out, down)
	}
	return out
}

var planarSteps = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

func passable(g *grid.Grid, v grid.Vec3) bool {
	return g.Passable(v)
}

// traversable excludes hazard cells on top of plain passability: anything
// flagged for collapse, or sitting directly under a flagged cell.
func traversable(g *grid.Grid, v grid.Vec3) bool {
	if !g.Passable(v) {
		return false
	}
	if g.CollapsePending(v) || g.CollapsePending(grid.Vec3{X: v.X, Y: v.Y, Z: v.Z + 1}) {
		return false
	}
	return true
}

func edgeCost(g *grid.Grid, from, to grid.Vec3) float64 {
	base := costCardinal
	switch {
	case to.Z != from.Z:
		base = costVertical
	case to.X != from.X && to.Y != from.Y:
		base = costDiagonal
	}
	return base * g.MoveCost(to)
}

func heuristic(a, b grid.Vec3) float64 {
	return grid.Euclid(a, b)
}

func reconstruct(goal *node) Path {
	n := 0
	for cur := goal; cur != nil; cur = cur.parent {
		n++
	}
	steps := make([]grid.Vec3, n)
	for cur := goal; cur != nil; cur = cur.parent {
		n--
		steps[n] = cur.pos
	}
	return Path{Steps: steps, Cost: goal.g}
}

func clonePath(p Path) Path {
	steps := make([]grid.Vec3, len(p.Steps))
	copy(steps, p.Steps)
	return Path{Steps: steps, Cost: p.Cost}
}
