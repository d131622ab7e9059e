package grid

// Fluid redistributes toward lower cells each tick. Excess goes down first,
// then one level at a time to cardinal neighbors in fixed +x,-x,+y,-y order,
// so identical inputs always produce identical flow. Total volume is
// conserved except at designated source cells.

func (g *Grid) stepFluid() {
	if len(g.wet) == 0 {
		return
	}

	for _, i := range sortedKeys(g.wet) {
		lvl := g.fluid[i]
		if lvl == 0 {
			if _, src := g.sources[i]; !src {
				delete(g.wet, i)
			}
			continue
		}
		v := g.vec(i)

		// Down first: pour as much as fits.
		below := Vec3{v.X, v.Y, v.Z - 1}
		if g.InBounds(below) {
			j := g.idx(below)
			if !g.def(j).Solid {
				space := 7 - g.fluid[j]
				if space > lvl {
					space = lvl
				}
				if space > 0 {
					g.setFluidAt(j, g.fluid[j]+space)
					lvl -= space
					g.setFluidAt(i, lvl)
				}
			}
		}

		// Sideways: equalize one unit per neighbor per tick.
		for _, off := range planarOffsets {
			if lvl < 2 {
				break
			}
			n := v.Add(off)
			if !g.InBounds(n) {
				continue
			}
			j := g.idx(n)
			if g.def(j).Solid {
				continue
			}
			if g.fluid[j] < lvl-1 {
				g.setFluidAt(j, g.fluid[j]+1)
				lvl--
				g.setFluidAt(i, lvl)
			}
		}
	}

	// Sources replenish to full depth after flow.
	for _, i := range sortedKeys(g.sources) {
		g.setFluidAt(i, 7)
	}
}
