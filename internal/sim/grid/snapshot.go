package grid

import (
	"fmt"
	"sort"

	"stonedelve.sim/internal/sim/catalogs"
	"stonedelve.sim/internal/sim/encoding"
)

// Layers is the serialized form of the grid's dense state: RLE-encoded
// layers plus the sparse working sets needed to resume physics exactly where
// the exporting grid left off. Occupancy and support values are derived and
// are rebuilt on restore.
type Layers struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`

	Epoch uint64 `json:"epoch"`

	Materials    string `json:"materials"`
	Temperatures string `json:"temperatures"`
	Fluids       string `json:"fluids"`

	Sources   [][3]int `json:"sources,omitempty"`
	Deferred  [][3]int `json:"deferred_collapses,omitempty"`
	HeatFront [][3]int `json:"heat_frontier,omitempty"`
	SupDirty  [][3]int `json:"support_dirty,omitempty"`
}

func (g *Grid) Export() Layers {
	l := Layers{
		Width: g.w, Height: g.h, Depth: g.d,
		Epoch:        g.epoch,
		Materials:    encoding.EncodeRLE(g.mat),
		Temperatures: encoding.EncodeRLE16s(g.temp),
		Fluids:       encoding.EncodeRLE8(g.fluid),
	}
	for _, i := range sortedKeys(g.sources) {
		v := g.vec(i)
		l.Sources = append(l.Sources, [3]int{v.X, v.Y, v.Z})
	}
	for _, i := range g.deferred {
		v := g.vec(i)
		l.Deferred = append(l.Deferred, [3]int{v.X, v.Y, v.Z})
	}
	for _, i := range sortedKeys(g.heatFront) {
		v := g.vec(i)
		l.HeatFront = append(l.HeatFront, [3]int{v.X, v.Y, v.Z})
	}
	for _, i := range sortedKeys(g.supDirty) {
		v := g.vec(i)
		l.SupDirty = append(l.SupDirty, [3]int{v.X, v.Y, v.Z})
	}
	return l
}

// Restore rebuilds a grid from serialized layers. Support values and the wet
// set are derived and recomputed; the heat frontier, the dirty-support set and
// the deferred collapse queue come from the snapshot verbatim, so a restored
// grid steps identically to the grid that exported it under any tuning.
func Restore(mats *catalogs.MaterialCatalog, p Params, l Layers) (*Grid, error) {
	g, err := New(mats, p, l.Width, l.Height, l.Depth)
	if err != nil {
		return nil, err
	}
	n := l.Width * l.Height * l.Depth

	mat, err := encoding.DecodeRLE(l.Materials)
	if err != nil {
		return nil, fmt.Errorf("grid restore: materials: %w", err)
	}
	temp, err := encoding.DecodeRLE16s(l.Temperatures)
	if err != nil {
		return nil, fmt.Errorf("grid restore: temperatures: %w", err)
	}
	fluid, err := encoding.DecodeRLE8(l.Fluids)
	if err != nil {
		return nil, fmt.Errorf("grid restore: fluids: %w", err)
	}
	if len(mat) != n || len(temp) != n || len(fluid) != n {
		return nil, fmt.Errorf("grid restore: layer length mismatch (want %d, got %d/%d/%d)",
			n, len(mat), len(temp), len(fluid))
	}
	for _, code := range mat {
		if int(code) >= len(mats.Palette) {
			return nil, fmt.Errorf("grid restore: material code %d outside palette", code)
		}
	}

	copy(g.mat, mat)
	copy(g.temp, temp)
	copy(g.fluid, fluid)
	g.epoch = l.Epoch

	for _, s := range l.Sources {
		v := Vec3{s[0], s[1], s[2]}
		if !g.InBounds(v) {
			return nil, fmt.Errorf("grid restore: source %v out of bounds", v)
		}
		g.AddFluidSource(v)
	}
	for _, c := range l.Deferred {
		v := Vec3{c[0], c[1], c[2]}
		if !g.InBounds(v) {
			return nil, fmt.Errorf("grid restore: deferred collapse %v out of bounds", v)
		}
		g.deferCollapse(g.idx(v))
	}
	for _, c := range l.HeatFront {
		v := Vec3{c[0], c[1], c[2]}
		if !g.InBounds(v) {
			return nil, fmt.Errorf("grid restore: heat frontier cell %v out of bounds", v)
		}
		g.heatFront[g.idx(v)] = struct{}{}
	}
	for _, c := range l.SupDirty {
		v := Vec3{c[0], c[1], c[2]}
		if !g.InBounds(v) {
			return nil, fmt.Errorf("grid restore: dirty support cell %v out of bounds", v)
		}
		g.supDirty[g.idx(v)] = struct{}{}
	}

	for i := 0; i < n; i++ {
		g.support[i] = float32(g.computeSupport(i))
		if g.fluid[i] > 0 {
			g.wet[i] = struct{}{}
		}
	}
	return g, nil
}

// SortedSources lists fluid source cells in scan order.
func (g *Grid) SortedSources() []Vec3 {
	out := make([]Vec3, 0, len(g.sources))
	for _, i := range sortedKeys(g.sources) {
		out = append(out, g.vec(i))
	}
	sort.Slice(out, func(a, b int) bool { return less(out[a], out[b]) })
	return out
}
