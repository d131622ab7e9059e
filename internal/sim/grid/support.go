package grid

import "sort"

// Structural integrity. A solid cell is held either by a solid cell directly
// below it (contributing that material's support strength) or by planar
// neighbors at 0.3 each, so an isolated ledge cell (one neighbor) fails the
// default 0.5 threshold while a cell inside a span (two neighbors) holds.
// Collapse resolution converts failed cells to rubble and re-checks their
// neighbors in the same tick until the per-tick budget runs out; the
// remainder defers to the next tick and is never dropped.

const adjacentSupport = 0.3

func (g *Grid) touchSupport(i int) {
	g.supDirty[i] = struct{}{}
	v := g.vec(i)
	for _, off := range faceOffsets {
		n := v.Add(off)
		if g.InBounds(n) {
			g.supDirty[g.idx(n)] = struct{}{}
		}
	}
}

func (g *Grid) computeSupport(i int) float64 {
	d := g.def(i)
	if !d.Solid {
		// Open cells need no support.
		return 1
	}
	v := g.vec(i)

	below := Vec3{v.X, v.Y, v.Z - 1}
	if v.Z == 0 {
		// Grid floor is bedrock (boundary rule: outside the grid is solid).
		return 1
	}
	j := g.idx(below)
	if bd := g.def(j); bd.Solid {
		s := bd.Support
		if s <= 0 {
			s = 1
		}
		return s
	}

	adj := 0
	for _, off := range planarOffsets {
		n := v.Add(off)
		if !g.InBounds(n) {
			// Boundary counts as solid.
			adj++
			continue
		}
		if g.def(g.idx(n)).Solid {
			adj++
		}
	}
	return adjacentSupport * float64(adj)
}

func (g *Grid) stepStructure() {
	if len(g.supDirty) == 0 && len(g.deferred) == 0 {
		return
	}

	// Deferred collapses from the previous tick go first, then newly dirty
	// cells in sorted order.
	queue := g.deferred
	g.deferred = nil
	g.deferredSet = map[int]struct{}{}

	for _, i := range sortedKeys(g.supDirty) {
		s := g.computeSupport(i)
		g.support[i] = float32(s)
		if g.def(i).Solid && s < g.p.CollapseThreshold {
			queue = append(queue, i)
		}
	}
	g.supDirty = map[int]struct{}{}

	budget := g.p.CollapseBudget
	seen := map[int]struct{}{}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}

		if !g.def(i).Solid {
			continue
		}
		s := g.computeSupport(i)
		g.support[i] = float32(s)
		if s >= g.p.CollapseThreshold {
			continue
		}

		if budget == 0 {
			// Propagation budget exhausted: carry to next tick.
			g.deferCollapse(i)
			continue
		}
		budget--

		g.collapse(i)

		// Cascade within the tick: neighbors may have just lost support.
		v := g.vec(i)
		nbrs := make([]int, 0, 6)
		for _, off := range faceOffsets {
			n := v.Add(off)
			if g.InBounds(n) {
				nbrs = append(nbrs, g.idx(n))
			}
		}
		sort.Ints(nbrs)
		for _, j := range nbrs {
			if g.def(j).Solid {
				delete(seen, j)
				queue = append(queue, j)
			}
		}
	}
}

func (g *Grid) collapse(i int) {
	v := g.vec(i)
	before := g.passableAt(i)
	g.mat[i] = g.rubble
	g.support[i] = 1
	if g.passableAt(i) != before {
		g.epoch++
	}
	g.touchHeat(i)
	g.collapsedLast = append(g.collapsedLast, v)
}
