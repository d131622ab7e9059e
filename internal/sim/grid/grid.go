package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"stonedelve.sim/internal/sim/catalogs"
)

// Vec3 is an integer voxel coordinate. Z is the vertical axis (z-level).
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func Manhattan(a, b Vec3) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z)
}

func Euclid(a, b Vec3) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// Params are the physics constants, normally filled from tuning.
type Params struct {
	HeatEpsilon        int
	MagmaFloor         int
	MagmaAdjacentFloor int
	MinTemp            int
	MaxTemp            int

	FluidBlockDepth uint8

	CollapseThreshold float64
	CollapseBudget    int
}

// Grid is the dense voxel grid plus its physics working sets. It is owned by
// the simulation goroutine; nothing here is safe for concurrent use.
type Grid struct {
	w, h, d int
	mats    *catalogs.MaterialCatalog
	p       Params

	mat     []uint16
	temp    []int16
	fluid   []uint8
	support []float32
	occ     []uint64

	rubble uint16

	// Passability epoch: bumped whenever any cell's traversability flips.
	epoch uint64

	sources map[int]struct{}

	// Dirty working sets, keyed by flat index.
	heatFront map[int]struct{}
	wet       map[int]struct{}
	supDirty  map[int]struct{}

	// Collapse overflow carried to the next tick, in discovery order.
	// deferredSet mirrors the slice so hazard lookups stay O(1).
	deferred    []int
	deferredSet map[int]struct{}

	collapsedLast []Vec3
}

const defaultTemp = 20

// New builds an all-EMPTY grid. The material catalog must define EMPTY and
// RUBBLE.
func New(mats *catalogs.MaterialCatalog, p Params, w, h, d int) (*Grid, error) {
	if w <= 0 || h <= 0 || d <= 0 {
		return nil, fmt.Errorf("grid: bad dimensions %dx%dx%d", w, h, d)
	}
	rubble, ok := mats.Code("RUBBLE")
	if !ok {
		return nil, fmt.Errorf("grid: material catalog missing RUBBLE")
	}
	n := w * h * d
	g := &Grid{
		w: w, h: h, d: d,
		mats:      mats,
		p:         p,
		mat:       make([]uint16, n),
		temp:      make([]int16, n),
		fluid:     make([]uint8, n),
		support:   make([]float32, n),
		occ:       make([]uint64, n),
		rubble:      rubble,
		sources:     map[int]struct{}{},
		heatFront:   map[int]struct{}{},
		wet:         map[int]struct{}{},
		supDirty:    map[int]struct{}{},
		deferredSet: map[int]struct{}{},
	}
	for i := range g.temp {
		g.temp[i] = defaultTemp
		g.support[i] = 1
	}
	return g, nil
}

func (g *Grid) Size() (w, h, d int) { return g.w, g.h, g.d }

func (g *Grid) InBounds(v Vec3) bool {
	return v.X >= 0 && v.X < g.w && v.Y >= 0 && v.Y < g.h && v.Z >= 0 && v.Z < g.d
}

// idx panics on out-of-bounds access: callers inside the kernel index only
// coordinates they have validated, so a miss is a caller bug.
func (g *Grid) idx(v Vec3) int {
	if !g.InBounds(v) {
		panic(fmt.Sprintf("grid: out of bounds (%d,%d,%d)", v.X, v.Y, v.Z))
	}
	return v.X + v.Y*g.w + v.Z*g.w*g.h
}

func (g *Grid) vec(i int) Vec3 {
	return Vec3{i % g.w, (i / g.w) % g.h, i / (g.w * g.h)}
}

func (g *Grid) Epoch() uint64 { return g.epoch }

func (g *Grid) Material(v Vec3) uint16     { return g.mat[g.idx(v)] }
func (g *Grid) MaterialID(v Vec3) string   { return g.mats.Palette[g.mat[g.idx(v)]] }
func (g *Grid) Temperature(v Vec3) int     { return int(g.temp[g.idx(v)]) }
func (g *Grid) Fluid(v Vec3) uint8         { return g.fluid[g.idx(v)] }
func (g *Grid) Support(v Vec3) float64     { return float64(g.support[g.idx(v)]) }
func (g *Grid) Occupant(v Vec3) uint64     { return g.occ[g.idx(v)] }
func (g *Grid) SetOccupant(v Vec3, id uint64) { g.occ[g.idx(v)] = id }

func (g *Grid) def(i int) catalogs.MaterialDef {
	return g.mats.Def(g.mat[i])
}

func (g *Grid) passableAt(i int) bool {
	d := g.def(i)
	if d.Solid || d.Magma {
		return false
	}
	return g.fluid[i] < g.p.FluidBlockDepth
}

// Passable reports whether an agent can stand in or traverse the cell.
// Out-of-bounds is simply not passable (boundary rule: outside the grid is
// solid).
func (g *Grid) Passable(v Vec3) bool {
	if !g.InBounds(v) {
		return false
	}
	return g.passableAt(g.idx(v))
}

func (g *Grid) Climbable(v Vec3) bool {
	if !g.InBounds(v) {
		return false
	}
	return g.def(g.idx(v)).Climbable
}

// MoveCost is the terrain multiplier applied to the base step length when
// entering the cell. Fluid adds half a point per depth level.
func (g *Grid) MoveCost(v Vec3) float64 {
	i := g.idx(v)
	d := g.def(i)
	permille := d.MoveCostPermille
	if permille == 0 {
		permille = 1000
	}
	return float64(permille)/1000 + float64(g.fluid[i])*0.5
}

// SetMaterial mutates a cell's material, bumping the passability epoch if
// traversability flips and marking the physics working sets dirty. This is
// the single mutation path shared by world edits, digging, building and
// collapse resolution.
func (g *Grid) SetMaterial(v Vec3, code uint16) {
	i := g.idx(v)
	if g.mat[i] == code {
		return
	}
	before := g.passableAt(i)
	g.mat[i] = code

	d := g.mats.Def(code)
	if d.Magma && g.temp[i] < int16(g.p.MagmaFloor) {
		g.temp[i] = int16(g.p.MagmaFloor)
	}

	if g.passableAt(i) != before {
		g.epoch++
	}
	g.touchHeat(i)
	g.touchSupport(i)
}

func (g *Grid) SetTemperature(v Vec3, t int) {
	i := g.idx(v)
	g.temp[i] = int16(clampInt(t, g.p.MinTemp, g.p.MaxTemp))
	g.touchHeat(i)
}

func (g *Grid) SetFluid(v Vec3, lvl uint8) {
	if lvl > 7 {
		lvl = 7
	}
	i := g.idx(v)
	g.setFluidAt(i, lvl)
}

func (g *Grid) setFluidAt(i int, lvl uint8) {
	if g.fluid[i] == lvl {
		return
	}
	before := g.passableAt(i)
	g.fluid[i] = lvl
	if g.passableAt(i) != before {
		g.epoch++
	}
	if lvl > 0 {
		g.wet[i] = struct{}{}
	} else if _, src := g.sources[i]; !src {
		delete(g.wet, i)
	}
}

// AddFluidSource designates a cell that replenishes to full depth every
// tick. Sources are the only cells where total fluid volume may grow.
func (g *Grid) AddFluidSource(v Vec3) {
	i := g.idx(v)
	g.sources[i] = struct{}{}
	g.wet[i] = struct{}{}
}

func (g *Grid) RemoveFluidSource(v Vec3) {
	delete(g.sources, g.idx(v))
}

// TotalFluid sums fluid volume across the grid (conservation checks).
func (g *Grid) TotalFluid() int {
	total := 0
	for _, f := range g.fluid {
		total += int(f)
	}
	return total
}

// Step advances all physics by one tick: heat diffusion, fluid flow, then
// structural integrity. Deterministic: working sets are drained in sorted
// order.
func (g *Grid) Step() {
	g.collapsedLast = g.collapsedLast[:0]
	g.stepHeat()
	g.stepFluid()
	g.stepStructure()
}

// CollapsedLastTick lists cells converted to rubble by the most recent Step.
func (g *Grid) CollapsedLastTick() []Vec3 { return g.collapsedLast }

// PendingCollapses lists cells flagged for collapse but deferred past the
// per-tick propagation budget.
func (g *Grid) PendingCollapses() []Vec3 {
	out := make([]Vec3, 0, len(g.deferred))
	for _, i := range g.deferred {
		out = append(out, g.vec(i))
	}
	sort.Slice(out, func(a, b int) bool { return less(out[a], out[b]) })
	return out
}

// CollapsePending reports whether the cell is flagged for (deferred)
// collapse; the pathfinder treats such cells and the cells directly beneath
// them as hazards. The pathfinder calls this per node expansion, hence the
// set lookup rather than a scan of the deferred queue.
func (g *Grid) CollapsePending(v Vec3) bool {
	if !g.InBounds(v) {
		return false
	}
	_, ok := g.deferredSet[g.idx(v)]
	return ok
}

// deferCollapse queues a failed cell past the per-tick budget, once.
func (g *Grid) deferCollapse(i int) {
	if _, dup := g.deferredSet[i]; dup {
		return
	}
	g.deferred = append(g.deferred, i)
	g.deferredSet[i] = struct{}{}
}

var faceOffsets = [6]Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

var planarOffsets = [4]Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
}

// Digest hashes the physical layers plus the epoch, for determinism checks.
func (g *Grid) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], g.epoch)
	h.Write(tmp[:])
	for _, m := range g.mat {
		binary.LittleEndian.PutUint16(tmp[:2], m)
		h.Write(tmp[:2])
	}
	for _, t := range g.temp {
		binary.LittleEndian.PutUint16(tmp[:2], uint16(t))
		h.Write(tmp[:2])
	}
	h.Write(g.fluid)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:])
}

func less(a, b Vec3) bool {
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
