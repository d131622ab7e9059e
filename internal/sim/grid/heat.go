package grid

// Heat diffusion runs over a dirty frontier rather than the whole grid:
// only cells whose neighborhood is out of equilibrium (delta above the
// configured epsilon) are visited, keeping the pass O(active cells).

func (g *Grid) touchHeat(i int) {
	g.heatFront[i] = struct{}{}
	v := g.vec(i)
	for _, off := range faceOffsets {
		n := v.Add(off)
		if g.InBounds(n) {
			g.heatFront[g.idx(n)] = struct{}{}
		}
	}
}

type heatUpdate struct {
	i int
	t int16
}

func (g *Grid) stepHeat() {
	if len(g.heatFront) == 0 {
		return
	}

	// Compute against the pre-tick temperatures, then apply, so the result
	// does not depend on visit order.
	front := sortedKeys(g.heatFront)
	updates := make([]heatUpdate, 0, len(front))
	for _, i := range front {
		nt := g.nextTemp(i)
		if nt != g.temp[i] {
			updates = append(updates, heatUpdate{i, nt})
		}
	}

	next := make(map[int]struct{}, len(updates)*2)
	for _, u := range updates {
		g.temp[u.i] = u.t
	}
	for _, u := range updates {
		v := g.vec(u.i)
		if g.maxNeighborDelta(u.i) > g.p.HeatEpsilon {
			next[u.i] = struct{}{}
		}
		for _, off := range faceOffsets {
			n := v.Add(off)
			if !g.InBounds(n) {
				continue
			}
			j := g.idx(n)
			if g.maxNeighborDelta(j) > g.p.HeatEpsilon {
				next[j] = struct{}{}
			}
		}
	}
	// Magma cells never leave the frontier: they are persistent sources.
	for _, i := range front {
		if g.def(i).Magma {
			next[i] = struct{}{}
		}
	}
	g.heatFront = next
}

// nextTemp is the weighted average of the cell and its face-adjacent
// neighbors, scaled by the material's conductivity. Out-of-grid neighbors
// count as walls at the cell's own temperature, so the divisor is always 7.
func (g *Grid) nextTemp(i int) int16 {
	t := int(g.temp[i])
	v := g.vec(i)

	sum := t
	magmaAdjacent := false
	for _, off := range faceOffsets {
		n := v.Add(off)
		if !g.InBounds(n) {
			sum += t
			continue
		}
		j := g.idx(n)
		sum += int(g.temp[j])
		if g.def(j).Magma {
			magmaAdjacent = true
		}
	}
	avg := sum / 7

	cond := g.def(i).ConductivityPermille
	nt := t + (avg-t)*cond/1000

	d := g.def(i)
	if d.Magma && nt < g.p.MagmaFloor {
		nt = g.p.MagmaFloor
	}
	if magmaAdjacent && nt < g.p.MagmaAdjacentFloor {
		nt = g.p.MagmaAdjacentFloor
	}
	return int16(clampInt(nt, g.p.MinTemp, g.p.MaxTemp))
}

func (g *Grid) maxNeighborDelta(i int) int {
	t := int(g.temp[i])
	v := g.vec(i)
	max := 0
	for _, off := range faceOffsets {
		n := v.Add(off)
		if !g.InBounds(n) {
			continue
		}
		d := abs(int(g.temp[g.idx(n)]) - t)
		if d > max {
			max = d
		}
	}
	return max
}

// ActiveHeatCells reports the current frontier size (cost-model checks).
func (g *Grid) ActiveHeatCells() int { return len(g.heatFront) }
