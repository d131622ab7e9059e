package world

import (
	"errors"

	"stonedelve.sim/internal/sim/grid"
)

// Movement advances every executing intent by one base step of progress per
// tick. Entering a cell consumes that cell's terrain cost, so a mud cell
// (cost 3) takes three ticks to cross while open floor takes one. Arrival
// resolves the need action in the same tick as the final step.

// A mover blocked by another agent for stallGiveUpTicks consecutive ticks
// abandons the intent, the same outcome as an unreachable goal. The blocked
// need then sits out needRetryTicks of decision rounds so lower-priority
// needs get a turn instead of re-planning the same contested route.
const (
	stallGiveUpTicks = 8
	needRetryTicks   = 60
)

func (w *World) systemMovement() {
	for _, a := range w.sortedAgents() {
		if a.dead || a.Intent == nil {
			continue
		}
		it := a.Intent
		if it.Epoch != w.grid.Epoch() {
			// A dig or collapse earlier in this phase may have invalidated the
			// path. Drop it now rather than walking into a wall.
			a.Intent = nil
			continue
		}
		it.Progress += 1.0

		for it.Cursor+1 < len(it.Steps) {
			next := it.Steps[it.Cursor+1]
			cost := w.grid.MoveCost(next)
			if it.Progress < cost {
				break
			}
			if !w.grid.Passable(next) {
				a.Intent = nil
				break
			}
			if occ := w.grid.Occupant(next); occ != 0 && occ != uint64(a.ID) {
				if it.Cursor+2 == len(it.Steps) && occ == uint64(it.TargetID) {
					// The goal cell is occupied by the target itself; standing
					// adjacent counts as arrival (social visits).
					need, target := it.Need, it.TargetID
					a.Intent = nil
					w.arrive(a, need, target)
					break
				}
				// Stall behind the occupant; progress carries over.
				it.Stalled++
				if it.Stalled >= stallGiveUpTicks {
					if it.TargetID != 0 {
						a.cooldowns[it.Need] = w.tick.Load() + needRetryTicks
					}
					a.Intent = nil
				}
				break
			}
			it.Progress -= cost
			it.Stalled = 0
			w.moveAgent(a, next)
			it.Cursor++
		}

		if a.Intent != nil && it.Cursor+1 >= len(it.Steps) {
			need, target := it.Need, it.TargetID
			a.Intent = nil
			w.arrive(a, need, target)
		}
	}
}

// moveAgent is the single place an agent's position changes: the occupancy
// layer and the spatial index move in the same call, so the two views can
// never disagree.
func (w *World) moveAgent(a *Agent, to grid.Vec3) {
	if w.grid.Occupant(a.Pos) == uint64(a.ID) {
		w.grid.SetOccupant(a.Pos, 0)
	}
	a.Pos = to
	w.grid.SetOccupant(to, uint64(a.ID))
	w.index.Move(a.ID, to)
}

// arrive resolves the need action at the goal cell.
func (w *World) arrive(a *Agent, need NeedKind, targetID EntityID) {
	nt := w.tune.Needs
	switch need {
	case NeedFood:
		r := w.resources[targetID]
		if r == nil || r.Qty == 0 {
			return // eaten out from under us; re-decide next tick
		}
		if r.Qty > 0 {
			r.Qty--
			if r.Qty == 0 {
				w.destroyEntity(r.ID)
			}
		}
		a.Needs.Set(NeedFood, a.Needs.Food+nt.RestoreFood)

	case NeedDrink:
		r := w.resources[targetID]
		if r == nil || r.Qty == 0 {
			return
		}
		if r.Qty > 0 {
			r.Qty--
			if r.Qty == 0 {
				w.destroyEntity(r.ID)
			}
		}
		a.Needs.Set(NeedDrink, a.Needs.Drink+nt.RestoreDrink)

	case NeedSleep:
		// targetID 0 means no bed exists and the agent sleeps where it
		// stands, at the same restore rate.
		a.Needs.Set(NeedSleep, a.Needs.Sleep+nt.RestoreSleep)
		a.Stamina = clampF(a.Stamina+25, 0, 100)

	case NeedSocial:
		other := w.agents[targetID]
		if other == nil || other.dead {
			return
		}
		a.Needs.Set(NeedSocial, a.Needs.Social+nt.RestoreSocial)
		other.Needs.Set(NeedSocial, other.Needs.Social+nt.RestoreSocial)
		w.addAffinity(a.ID, other.ID, w.tune.SocialAffinityPerVisit)

	case NeedWork:
		if targetID == 0 {
			return // wander arrival, nothing to do
		}
		w.workAt(a, targetID)
	}
}

// workAt executes one dig at a worksite: the designated solid cell becomes
// EMPTY, its material drop lands in the digger's inventory and mining
// experience accrues. A full inventory is recoverable: dump at a stockpile
// and retry, or leave the drop on the ground.
func (w *World) workAt(a *Agent, targetID EntityID) {
	site := w.resources[targetID]
	if site == nil || site.Kind != ResourceWorkSite {
		return
	}
	target := site.Target
	def := w.cats.Materials.Def(w.grid.Material(target))
	if !def.Solid {
		// Already dug (or collapsed). Retire the site.
		w.destroyEntity(site.ID)
		return
	}

	empty, _ := w.cats.Materials.Code("EMPTY")
	w.grid.SetMaterial(target, empty)

	if def.DropsItem != "" {
		if err := a.Inventory.Add(def.DropsItem, 1); err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				w.depositAll(a)
				// Best effort after the dump; a still-full inventory means
				// the drop is simply lost to the rubble.
				_ = a.Inventory.Add(def.DropsItem, 1)
			}
		}
	}

	a.Skills.Gain(SkillMining, float64(def.Hardness))
	a.Needs.Set(NeedWork, a.Needs.Work+w.tune.Needs.RestoreWork)

	if site.Qty > 0 {
		site.Qty--
	}
	if site.Qty == 0 {
		w.destroyEntity(site.ID)
	}
}
