package world

import (
	"sort"

	"stonedelve.sim/internal/sim/grid"
	"stonedelve.sim/internal/sim/path"
)

// The decision engine runs once per agent per tick. Deciding and Pathing
// are transient within the evaluation: an agent leaves this function either
// Idle (nothing workable) or Executing (a live PathIntent). Unreachable and
// CapacityExceeded outcomes always have a defined fallback: the next need
// in priority order, or the next stockpile. A need whose route was abandoned
// mid-move sits out a short cooldown and falls back the same way.

// Needs above this value are comfortable enough to ignore.
const actThreshold = 60.0

// urgency is deliberately non-linear: a near-zero need must dominate
// regardless of other deficits.
func urgency(v float64) float64 {
	d := 100 - v
	return d * d
}

func (w *World) systemDecisions() {
	epoch := w.grid.Epoch()
	for _, a := range w.sortedAgents() {
		if a.dead {
			continue
		}
		if a.Intent != nil {
			if a.Intent.Epoch == epoch {
				continue // still Executing
			}
			// Grid changed under the cached path: free the intent and
			// decide again this tick.
			a.Intent = nil
		}
		w.decide(a)
	}
}

type candidate struct {
	kind NeedKind
	urg  float64
}

func (w *World) decide(a *Agent) {
	now := w.tick.Load()
	cands := make([]candidate, 0, needCount)
	for _, k := range needOrder {
		v := a.Needs.Get(k)
		if v >= actThreshold {
			continue
		}
		if now < a.cooldowns[k] {
			// Recently abandoned after stalling behind another agent; let
			// the remaining needs go first.
			continue
		}
		cands = append(cands, candidate{k, urgency(v)})
	}
	// Most urgent first; SliceStable keeps the fixed need ordering for ties.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].urg > cands[j].urg })

	anyTarget := false
	for _, c := range cands {
		targetID, goal, ok := w.resolveGoal(a, c.kind)
		if !ok {
			continue
		}
		anyTarget = true
		if goal == a.Pos {
			w.arrive(a, c.kind, targetID)
			return
		}
		p, fail := w.paths.Find(w.grid, a.Pos, goal)
		if fail != path.FailureNone {
			// Recoverable: fall back to the next-priority need this tick.
			continue
		}
		a.unreachable = 0
		a.Intent = &PathIntent{
			Need:     c.kind,
			TargetID: targetID,
			Goal:     goal,
			Steps:    p.Steps,
			Epoch:    w.grid.Epoch(),
		}
		return
	}

	if anyTarget {
		// Every candidate had a target but none was reachable.
		a.unreachable++
		if w.tune.ConnectivityWarnStreak > 0 && a.unreachable == w.tune.ConnectivityWarnStreak {
			w.connectivityWarnings++
			w.log.WithField("agent", a.ID).WithField("streak", a.unreachable).
				Warn("agent goals persistently unreachable; world may be partitioned")
		}
	}

	w.wander(a)
}

// resolveGoal maps a need to the nearest qualifying target via the spatial
// index. ok=false means no target exists at all (distinct from unreachable).
func (w *World) resolveGoal(a *Agent, k NeedKind) (EntityID, grid.Vec3, bool) {
	switch k {
	case NeedFood:
		return w.nearestResource(a.Pos, ResourceFood)
	case NeedDrink:
		return w.nearestResource(a.Pos, ResourceDrink)
	case NeedSleep:
		if id, pos, ok := w.nearestResource(a.Pos, ResourceBed); ok {
			return id, pos, true
		}
		// No bed anywhere: doze off on the spot.
		return 0, a.Pos, true
	case NeedSocial:
		return w.nearestAgent(a)
	case NeedWork:
		return w.nearestResource(a.Pos, ResourceWorkSite)
	default:
		return 0, grid.Vec3{}, false
	}
}

func (w *World) maxSearchRadius() int {
	gw, gh, gd := w.grid.Size()
	return gw + gh + gd
}

func (w *World) nearestResource(from grid.Vec3, kind ResourceKind) (EntityID, grid.Vec3, bool) {
	id, ok := w.index.Nearest(from, w.maxSearchRadius(), func(id EntityID) bool {
		r := w.resources[id]
		return r != nil && r.Kind == kind && r.Qty != 0
	})
	if !ok {
		return 0, grid.Vec3{}, false
	}
	return id, w.resources[id].Pos, true
}

func (w *World) nearestAgent(a *Agent) (EntityID, grid.Vec3, bool) {
	id, ok := w.index.Nearest(a.Pos, w.maxSearchRadius(), func(id EntityID) bool {
		other := w.agents[id]
		return other != nil && other.ID != a.ID && !other.dead
	})
	if !ok {
		return 0, grid.Vec3{}, false
	}
	return id, w.agents[id].Pos, true
}

// wander ambles one passable planar step, chosen by hash so identical
// worlds wander identically.
func (w *World) wander(a *Agent) {
	dirs := [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	start := w.hashRange(0, 7, uint64(a.ID), w.tick.Load())
	for i := 0; i < 8; i++ {
		d := dirs[(start+i)%8]
		n := grid.Vec3{X: a.Pos.X + d[0], Y: a.Pos.Y + d[1], Z: a.Pos.Z}
		if w.grid.Passable(n) {
			a.Intent = &PathIntent{
				Need:  NeedWork, // inert on arrival: wander restores nothing
				Goal:  n,
				Steps: []grid.Vec3{a.Pos, n},
				Epoch: w.grid.Epoch(),
			}
			a.Intent.TargetID = 0
			return
		}
	}
	// Boxed in; stay Idle.
}
