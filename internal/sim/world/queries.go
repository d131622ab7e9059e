package world

import (
	"stonedelve.sim/internal/sim/grid"
)

// Read-only query surface. Every result is a copy; callers never receive
// pointers into live simulation state. Like the mutators, these must run on
// the simulation goroutine (directly, or through Do in Run mode).

// Tile is the full per-cell view.
type Tile struct {
	Pos             grid.Vec3 `json:"pos"`
	Material        string    `json:"material"`
	Temperature     int       `json:"temperature"`
	Fluid           uint8     `json:"fluid"`
	Support         float64   `json:"support"`
	Passable        bool      `json:"passable"`
	Occupant        EntityID  `json:"occupant,omitempty"`
	CollapsePending bool      `json:"collapse_pending,omitempty"`
}

func (w *World) TileAt(pos grid.Vec3) (Tile, bool) {
	if !w.grid.InBounds(pos) {
		return Tile{}, false
	}
	return Tile{
		Pos:             pos,
		Material:        w.grid.MaterialID(pos),
		Temperature:     w.grid.Temperature(pos),
		Fluid:           w.grid.Fluid(pos),
		Support:         w.grid.Support(pos),
		Passable:        w.grid.Passable(pos),
		Occupant:        EntityID(w.grid.Occupant(pos)),
		CollapsePending: w.grid.CollapsePending(pos),
	}, true
}

// EntityView is the public snapshot of any entity.
type EntityView struct {
	ID   EntityID  `json:"id"`
	Kind string    `json:"kind"`
	Pos  grid.Vec3 `json:"pos"`

	// Agents.
	Name    string  `json:"name,omitempty"`
	Needs   *Needs  `json:"needs,omitempty"`
	Mood    *Mood   `json:"mood,omitempty"`
	Skills  *Skills `json:"skills,omitempty"`
	Health  float64 `json:"health,omitempty"`
	Stamina float64 `json:"stamina,omitempty"`

	// Resources.
	Qty int `json:"qty,omitempty"`

	// Stockpiles.
	Stored   int `json:"stored,omitempty"`
	Capacity int `json:"capacity,omitempty"`
}

func (w *World) viewOf(id EntityID) (EntityView, bool) {
	if a, ok := w.agents[id]; ok {
		needs, mood, skills := a.Needs, a.Mood, a.Skills
		return EntityView{
			ID: id, Kind: "AGENT", Pos: a.Pos,
			Name: a.Name, Needs: &needs, Mood: &mood, Skills: &skills,
			Health: a.Health, Stamina: a.Stamina,
		}, true
	}
	if r, ok := w.resources[id]; ok {
		return EntityView{ID: id, Kind: string(r.Kind), Pos: r.Pos, Qty: r.Qty}, true
	}
	if s, ok := w.stockpiles[id]; ok {
		return EntityView{ID: id, Kind: "STOCKPILE", Pos: s.Pos, Stored: s.Total(), Capacity: s.Capacity}, true
	}
	return EntityView{}, false
}

func (w *World) Entity(id EntityID) (EntityView, bool) { return w.viewOf(id) }

// EntitiesInRegion lists entities inside the inclusive box, ordered by id.
func (w *World) EntitiesInRegion(min, max grid.Vec3) []EntityView {
	ids := w.index.QueryRegion(min, max)
	out := make([]EntityView, 0, len(ids))
	for _, id := range ids {
		if v, ok := w.viewOf(id); ok {
			out = append(out, v)
		}
	}
	return out
}

// ActivePathOf returns a copy of the agent's in-flight path, if any.
func (w *World) ActivePathOf(id EntityID) ([]grid.Vec3, bool) {
	a := w.agents[id]
	if a == nil || a.Intent == nil {
		return nil, false
	}
	steps := make([]grid.Vec3, len(a.Intent.Steps)-a.Intent.Cursor)
	copy(steps, a.Intent.Steps[a.Intent.Cursor:])
	return steps, true
}

// PendingCollapseCells lists cells flagged for collapse but deferred past
// this tick's budget.
func (w *World) PendingCollapseCells() []grid.Vec3 { return w.grid.PendingCollapses() }

// ConnectivityWarnings counts agents whose goals stayed unreachable long
// enough to suggest the world is partitioned.
func (w *World) ConnectivityWarnings() uint64 { return w.connectivityWarnings }

func (w *World) AgentCount() int     { return len(w.agents) }
func (w *World) ResourceCount() int  { return len(w.resources) }
func (w *World) StockpileCount() int { return len(w.stockpiles) }
