package worldfile

import (
	"stonedelve.sim/internal/sim/world"
)

// Demo generates a self-contained fortress valley without an external world
// file: a stone shelf with soil topsoil, a dug-out hall, a spring, a magma
// pocket at depth and a small starting roster. Generation is a pure function
// of the seed.

func hash2(seed int64, x, y int) uint64 {
	h := uint64(seed) ^ 0x9e3779b97f4a7c15
	mix := func(v uint64) {
		h ^= v
		h *= 0xff51afd7ed558ccd
		h ^= h >> 33
	}
	mix(uint64(int64(x)))
	mix(uint64(int64(y)))
	return h
}

// Demo builds the demo world definition. Dimensions below 24x24x4 are
// raised to the minimum the layout needs.
func Demo(id string, seed int64, w, h, d int) File {
	if w < 24 {
		w = 24
	}
	if h < 24 {
		h = 24
	}
	if d < 4 {
		d = 4
	}

	f := File{
		ID:     id,
		Seed:   seed,
		Width:  w,
		Height: h,
		Depth:  d,
	}

	// Bedrock-level stone with a magma pocket in a far corner.
	f.Fills = append(f.Fills, Fill{
		Min: [3]int{0, 0, 0}, Max: [3]int{w - 1, h - 1, 0}, Material: "STONE",
	})
	f.Cells = append(f.Cells,
		Cell{Pos: [3]int{w - 2, h - 2, 0}, Material: "MAGMA"},
		Cell{Pos: [3]int{w - 3, h - 2, 0}, Material: "MAGMA"},
	)

	// Soil band on level 1 with a dug-out hall in the middle. The hash picks
	// which soil cells stay undug, giving each seed a different cavern edge.
	cx, cy := w/2, h/2
	for y := 2; y < h-2; y++ {
		for x := 2; x < w-2; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= 36 {
				continue // open hall
			}
			if hash2(seed, x, y)%1000 < 700 {
				f.Cells = append(f.Cells, Cell{Pos: [3]int{x, y, 1}, Material: "SOIL"})
			}
		}
	}

	// Stairs from the hall up to level 2.
	f.Cells = append(f.Cells, Cell{Pos: [3]int{cx + 4, cy, 1}, Material: "STAIRS"})

	// A spring near the hall's north edge.
	f.Sources = append(f.Sources, [3]int{cx, cy - 5, 1})

	qty := func(n int) *int { return &n }

	// Roster: dwarves in the hall, a pantry, a well, beds, a stockpile and
	// dig designations into the soil band.
	for i := 0; i < 4; i++ {
		f.Spawns = append(f.Spawns, world.SpawnSpec{
			Kind: "AGENT",
			Pos:  [3]int{cx - 2 + i, cy, 1},
		})
	}
	f.Spawns = append(f.Spawns,
		world.SpawnSpec{Kind: "FOOD", Pos: [3]int{cx - 3, cy - 2, 1}, Qty: qty(25)},
		world.SpawnSpec{Kind: "DRINK", Pos: [3]int{cx, cy - 4, 1}},
		world.SpawnSpec{Kind: "BED", Pos: [3]int{cx + 2, cy + 2, 1}},
		world.SpawnSpec{Kind: "BED", Pos: [3]int{cx + 3, cy + 2, 1}},
		world.SpawnSpec{Kind: "STOCKPILE", Pos: [3]int{cx - 2, cy + 2, 1}},
	)

	// Dig sites around the hall rim, standing cell next to the target.
	digOffsets := [][2]int{{7, 0}, {-7, 0}, {0, 7}, {0, -7}}
	for _, off := range digOffsets {
		tx, ty := cx+off[0], cy+off[1]
		sx, sy := cx+off[0]*6/7, cy+off[1]*6/7
		target := [3]int{tx, ty, 1}
		f.Spawns = append(f.Spawns, world.SpawnSpec{
			Kind:   "WORKSITE",
			Pos:    [3]int{sx, sy, 1},
			Qty:    qty(1),
			Target: &target,
		})
	}

	return f
}
