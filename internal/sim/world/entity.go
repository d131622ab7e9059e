package world

import (
	"sort"

	"stonedelve.sim/internal/sim/grid"
)

// NeedKind enumerates agent needs. Order doubles as the fixed priority
// tie-break: food beats drink beats sleep beats social beats work.
type NeedKind int

const (
	NeedFood NeedKind = iota
	NeedDrink
	NeedSleep
	NeedSocial
	NeedWork
	needCount
)

var needOrder = [needCount]NeedKind{NeedFood, NeedDrink, NeedSleep, NeedSocial, NeedWork}

func (k NeedKind) String() string {
	switch k {
	case NeedFood:
		return "food"
	case NeedDrink:
		return "drink"
	case NeedSleep:
		return "sleep"
	case NeedSocial:
		return "social"
	case NeedWork:
		return "work"
	default:
		return "unknown"
	}
}

func needKindFromString(s string) (NeedKind, bool) {
	for _, k := range needOrder {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Needs are bounded [0,100]; they decay over time and are restored by
// actions.
type Needs struct {
	Food   float64 `json:"food"`
	Drink  float64 `json:"drink"`
	Sleep  float64 `json:"sleep"`
	Social float64 `json:"social"`
	Work   float64 `json:"work"`
}

func (n *Needs) ptr(k NeedKind) *float64 {
	switch k {
	case NeedFood:
		return &n.Food
	case NeedDrink:
		return &n.Drink
	case NeedSleep:
		return &n.Sleep
	case NeedSocial:
		return &n.Social
	default:
		return &n.Work
	}
}

func (n *Needs) Get(k NeedKind) float64 { return *n.ptr(k) }

func (n *Needs) Set(k NeedKind, v float64) {
	*n.ptr(k) = clampF(v, 0, 100)
}

// SkillKind enumerates trainable skills, bounded [0,20] and monotonic
// non-decreasing.
type SkillKind int

const (
	SkillMining SkillKind = iota
	SkillCrafting
	SkillCombat
	SkillFarming
	skillCount
)

func (k SkillKind) String() string {
	switch k {
	case SkillMining:
		return "mining"
	case SkillCrafting:
		return "crafting"
	case SkillCombat:
		return "combat"
	default:
		return "farming"
	}
}

type Skills struct {
	Level [skillCount]int     `json:"level"`
	Exp   [skillCount]float64 `json:"exp"`
}

const maxSkillLevel = 20

// Gain accrues experience; the threshold scales with the current level, and
// levels never decrease.
func (s *Skills) Gain(k SkillKind, amount float64) {
	if s.Level[k] >= maxSkillLevel {
		return
	}
	s.Exp[k] += amount
	required := float64(s.Level[k]+1) * 10
	for s.Exp[k] >= required && s.Level[k] < maxSkillLevel {
		s.Exp[k] -= required
		s.Level[k]++
		required = float64(s.Level[k]+1) * 10
	}
}

// Mood is derived state, recomputed every tick; Factors records the
// contributing terms for debug overlays.
type Mood struct {
	Value   float64     `json:"value"`
	Factors MoodFactors `json:"factors"`
}

type MoodFactors struct {
	NeedDeficit float64 `json:"need_deficit"`
	Social      float64 `json:"social"`
	Trauma      float64 `json:"trauma"`
	Environment float64 `json:"environment"`
}

// PathIntent is the movement state owned by an agent for the duration of a
// move action. It is freed (not merely ignored) when the agent is destroyed,
// when it reissues a path request, or when the passability epoch moves past
// the one the path was computed under. Live intents ride along in snapshots
// so a restored world resumes mid-move.
type PathIntent struct {
	Need     NeedKind
	TargetID EntityID
	Goal     grid.Vec3
	Steps    []grid.Vec3
	Cursor   int
	Epoch    uint64
	// Progress accumulates one base step per tick; crossing into a cell
	// consumes that cell's terrain cost, so a high-cost cell takes several
	// ticks.
	Progress float64
	// Stalled counts consecutive ticks spent blocked behind another agent;
	// at stallGiveUpTicks the intent is abandoned.
	Stalled int
}

type Agent struct {
	ID   EntityID
	Name string
	Pos  grid.Vec3

	Needs  Needs
	Mood   Mood
	Skills Skills

	Health  float64
	Stamina float64
	Trauma  float64
	Stress  float64

	Inventory Inventory

	Intent *PathIntent

	// cooldowns[k] is the tick before which need k is skipped by the
	// decision engine, set when a move toward it was abandoned after
	// stalling behind another agent.
	cooldowns [needCount]uint64

	// Consecutive decision rounds in which every candidate goal was
	// unreachable; feeds the connectivity warning counter.
	unreachable int

	dead bool
}

// ResourceKind classifies need-satisfying world entities.
type ResourceKind string

const (
	ResourceFood     ResourceKind = "FOOD"
	ResourceDrink    ResourceKind = "DRINK"
	ResourceBed      ResourceKind = "BED"
	ResourceWorkSite ResourceKind = "WORKSITE"
)

// Resource is a consumable or reusable target in the world. Qty < 0 means
// unlimited (wells, beds). A worksite carries the solid cell designated for
// digging.
type Resource struct {
	ID   EntityID
	Kind ResourceKind
	Pos  grid.Vec3
	Qty  int

	Target grid.Vec3 // worksites only
}

func (w *World) sortedAgents() []*Agent {
	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) sortedResources() []*Resource {
	out := make([]*Resource, 0, len(w.resources))
	for _, r := range w.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) sortedStockpiles() []*Stockpile {
	out := make([]*Stockpile, 0, len(w.stockpiles))
	for _, s := range w.stockpiles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// destroyEntity tombstones an entity; actual removal happens in the
// lifecycle phase at the end of the tick, never in place, so iterators stay
// valid and ids are not reused within the tick.
func (w *World) destroyEntity(id EntityID) {
	if a := w.agents[id]; a != nil {
		a.dead = true
		a.Intent = nil // cancel, do not merely ignore
	}
	w.tombstones = append(w.tombstones, id)
}

func (w *World) systemLifecycle() {
	if len(w.tombstones) == 0 {
		return
	}
	for _, id := range w.tombstones {
		if a, ok := w.agents[id]; ok {
			if w.grid.Occupant(a.Pos) == uint64(id) {
				w.grid.SetOccupant(a.Pos, 0)
			}
			w.index.Remove(id)
			w.dropRelations(id)
			delete(w.agents, id)
			continue
		}
		if _, ok := w.resources[id]; ok {
			w.index.Remove(id)
			delete(w.resources, id)
			continue
		}
		if _, ok := w.stockpiles[id]; ok {
			w.index.Remove(id)
			delete(w.stockpiles, id)
		}
	}
	w.tombstones = w.tombstones[:0]
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
