package world

// Needs decay pass plus the derived health/stamina/stress bookkeeping the
// decay feeds. Runs once per agent per tick, before decisions.

func (w *World) systemNeeds(dt float64) {
	nt := w.tune.Needs
	for _, a := range w.sortedAgents() {
		if a.dead {
			continue
		}

		drinkRate := nt.DecayDrink
		// Heat accelerates dehydration.
		if w.grid.Temperature(a.Pos) > nt.HotTemp {
			drinkRate *= nt.HotDrinkScale
		}

		a.Needs.Set(NeedFood, a.Needs.Food-nt.DecayFood*dt)
		a.Needs.Set(NeedDrink, a.Needs.Drink-drinkRate*dt)
		a.Needs.Set(NeedSleep, a.Needs.Sleep-nt.DecaySleep*dt)
		a.Needs.Set(NeedSocial, a.Needs.Social-nt.DecaySocial*dt)
		a.Needs.Set(NeedWork, a.Needs.Work-nt.DecayWork*dt)

		w.updateVitals(a, dt)
	}
}

func (w *World) updateVitals(a *Agent, dt float64) {
	// Stamina: drains while executing a move, recovers at rest.
	if a.Intent != nil {
		a.Stamina = clampF(a.Stamina-5*dt, 0, 100)
	} else {
		a.Stamina = clampF(a.Stamina+10*dt, 0, 100)
	}

	// Health follows the survival needs.
	switch {
	case a.Needs.Drink < 5:
		a.Health -= 5 * dt
	case a.Needs.Food < 10:
		a.Health -= 2 * dt
	default:
		if a.Needs.Food > 50 && a.Needs.Drink > 50 && a.Needs.Sleep > 50 {
			a.Health += 0.5 * dt
		}
	}
	a.Health = clampF(a.Health, 0, 100)

	// Stress climbs with unmet needs and lingering trauma, eases under good
	// mood. Trauma itself fades slowly.
	stress := 0.0
	for _, k := range needOrder {
		if a.Needs.Get(k) < 30 {
			stress += 0.02 * dt
		}
	}
	stress += a.Trauma * 0.01 * dt
	if a.Mood.Value > 40 {
		stress -= 0.01 * dt
	}
	a.Stress = clampF(a.Stress+stress, 0, 1)
	a.Trauma = clampF(a.Trauma-0.001*dt, 0, 1)

	if a.Health <= 0 {
		w.destroyEntity(a.ID)
	}
}

// applyCollapseTrauma marks every agent that witnessed this tick's cave-ins.
func (w *World) applyCollapseTrauma() {
	collapsed := w.grid.CollapsedLastTick()
	if len(collapsed) == 0 {
		return
	}
	r := float64(w.tune.TraumaWitnessRadius)
	for _, c := range collapsed {
		for _, id := range w.index.QueryRadius(c, r) {
			if a := w.agents[id]; a != nil && !a.dead {
				a.Trauma = clampF(a.Trauma+0.2, 0, 1)
			}
		}
	}
}
