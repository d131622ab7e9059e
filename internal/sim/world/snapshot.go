package world

import (
	"fmt"

	"stonedelve.sim/internal/persistence/snapshot"
	"stonedelve.sim/internal/sim/catalogs"
	"stonedelve.sim/internal/sim/grid"
	"stonedelve.sim/internal/sim/tuning"
)

// GridParams maps tuning onto the grid's physics constants.
func GridParams(t tuning.Tuning) grid.Params {
	return grid.Params{
		HeatEpsilon:        t.Heat.Epsilon,
		MagmaFloor:         t.Heat.MagmaFloor,
		MagmaAdjacentFloor: t.Heat.MagmaAdjacentFloor,
		MinTemp:            t.Heat.MinTemp,
		MaxTemp:            t.Heat.MaxTemp,
		FluidBlockDepth:    uint8(t.Fluid.BlockDepth),
		CollapseThreshold:  t.Struct.CollapseThreshold,
		CollapseBudget:     t.Struct.CollapseBudgetPerTick,
	}
}

// Export captures the full durable state, including in-flight path intents
// and need cooldowns, so a restored world steps in lockstep with the live
// world that exported it. The path cache and mood are derived and are
// rebuilt after restore.
func (w *World) Export() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
		},
		Seed:     w.cfg.Seed,
		TickRate: w.tune.TickRateHz,
		Grid:     w.grid.Export(),
		Counters: snapshot.CountersV1{NextEntity: w.nextEntity},

		ConnectivityWarnings: w.connectivityWarnings,
	}

	for _, a := range w.sortedAgents() {
		av := snapshot.AgentV1{
			ID:      uint64(a.ID),
			Name:    a.Name,
			Pos:     [3]int{a.Pos.X, a.Pos.Y, a.Pos.Z},
			Needs:   map[string]float64{},
			Health:  a.Health,
			Stamina: a.Stamina,
			Trauma:  a.Trauma,
			Stress:  a.Stress,

			SkillLevels: make([]int, skillCount),
			SkillExp:    make([]float64, skillCount),

			Capacity: a.Inventory.Capacity,
		}
		for _, k := range needOrder {
			av.Needs[k.String()] = a.Needs.Get(k)
		}
		for s := 0; s < int(skillCount); s++ {
			av.SkillLevels[s] = a.Skills.Level[s]
			av.SkillExp[s] = a.Skills.Exp[s]
		}
		if len(a.Inventory.Items) > 0 {
			av.Inventory = map[string]int{}
			for k, v := range a.Inventory.Items {
				av.Inventory[k] = v
			}
		}
		for _, k := range needOrder {
			if until := a.cooldowns[k]; until != 0 {
				if av.Cooldowns == nil {
					av.Cooldowns = map[string]uint64{}
				}
				av.Cooldowns[k.String()] = until
			}
		}
		av.UnreachableStreak = a.unreachable
		if it := a.Intent; it != nil {
			iv := &snapshot.IntentV1{
				Need:     it.Need.String(),
				TargetID: uint64(it.TargetID),
				Goal:     [3]int{it.Goal.X, it.Goal.Y, it.Goal.Z},
				Steps:    make([][3]int, 0, len(it.Steps)),
				Cursor:   it.Cursor,
				Progress: it.Progress,
				Epoch:    it.Epoch,
				Stalled:  it.Stalled,
			}
			for _, s := range it.Steps {
				iv.Steps = append(iv.Steps, [3]int{s.X, s.Y, s.Z})
			}
			av.Intent = iv
		}
		snap.Agents = append(snap.Agents, av)
	}

	for _, r := range w.sortedResources() {
		rv := snapshot.ResourceV1{
			ID:   uint64(r.ID),
			Kind: string(r.Kind),
			Pos:  [3]int{r.Pos.X, r.Pos.Y, r.Pos.Z},
			Qty:  r.Qty,
		}
		if r.Kind == ResourceWorkSite {
			t := [3]int{r.Target.X, r.Target.Y, r.Target.Z}
			rv.Target = &t
		}
		snap.Resources = append(snap.Resources, rv)
	}

	for _, s := range w.sortedStockpiles() {
		sv := snapshot.StockpileV1{
			ID:       uint64(s.ID),
			Pos:      [3]int{s.Pos.X, s.Pos.Y, s.Pos.Z},
			Capacity: s.Capacity,
		}
		if len(s.Items) > 0 {
			sv.Items = map[string]int{}
			for k, v := range s.Items {
				sv.Items[k] = v
			}
		}
		snap.Stockpiles = append(snap.Stockpiles, sv)
	}

	for _, pk := range w.sortedPairs() {
		snap.Relations = append(snap.Relations, snapshot.RelationV1{
			A: uint64(pk.A), B: uint64(pk.B), Affinity: w.relations[pk],
		})
	}

	return snap
}

// Restore rebuilds a world from a snapshot. The spatial index and the
// occupancy layer are reconstructed; moods refresh on the first tick.
func Restore(snap snapshot.SnapshotV1, tune tuning.Tuning, cats *catalogs.Catalogs) (*World, error) {
	g, err := grid.Restore(&cats.Materials, GridParams(tune), snap.Grid)
	if err != nil {
		return nil, err
	}

	w := New(Config{ID: snap.Header.WorldID, Seed: snap.Seed}, tune, cats, g)
	w.tick.Store(snap.Header.Tick)
	w.nextEntity = snap.Counters.NextEntity
	w.connectivityWarnings = snap.ConnectivityWarnings

	for _, av := range snap.Agents {
		pos := grid.Vec3{X: av.Pos[0], Y: av.Pos[1], Z: av.Pos[2]}
		if !g.InBounds(pos) {
			return nil, fmt.Errorf("restore: agent %d position %v out of bounds", av.ID, pos)
		}
		a := &Agent{
			ID:      EntityID(av.ID),
			Name:    av.Name,
			Pos:     pos,
			Health:  av.Health,
			Stamina: av.Stamina,
			Trauma:  av.Trauma,
			Stress:  av.Stress,

			Inventory: NewInventory(av.Capacity),
		}
		for _, k := range needOrder {
			a.Needs.Set(k, av.Needs[k.String()])
		}
		for s := 0; s < int(skillCount) && s < len(av.SkillLevels); s++ {
			a.Skills.Level[s] = av.SkillLevels[s]
			a.Skills.Exp[s] = av.SkillExp[s]
		}
		for k, v := range av.Inventory {
			a.Inventory.Items[k] = v
		}
		for name, until := range av.Cooldowns {
			if k, ok := needKindFromString(name); ok {
				a.cooldowns[k] = until
			}
		}
		a.unreachable = av.UnreachableStreak
		if iv := av.Intent; iv != nil {
			if k, ok := needKindFromString(iv.Need); ok {
				it := &PathIntent{
					Need:     k,
					TargetID: EntityID(iv.TargetID),
					Goal:     grid.Vec3{X: iv.Goal[0], Y: iv.Goal[1], Z: iv.Goal[2]},
					Steps:    make([]grid.Vec3, 0, len(iv.Steps)),
					Cursor:   iv.Cursor,
					Epoch:    iv.Epoch,
					Progress: iv.Progress,
					Stalled:  iv.Stalled,
				}
				for _, s := range iv.Steps {
					it.Steps = append(it.Steps, grid.Vec3{X: s[0], Y: s[1], Z: s[2]})
				}
				a.Intent = it
			}
		}
		w.agents[a.ID] = a
		w.index.Insert(a.ID, pos)
		g.SetOccupant(pos, av.ID)
	}

	for _, rv := range snap.Resources {
		pos := grid.Vec3{X: rv.Pos[0], Y: rv.Pos[1], Z: rv.Pos[2]}
		if !g.InBounds(pos) {
			return nil, fmt.Errorf("restore: resource %d position %v out of bounds", rv.ID, pos)
		}
		r := &Resource{
			ID:   EntityID(rv.ID),
			Kind: ResourceKind(rv.Kind),
			Pos:  pos,
			Qty:  rv.Qty,
		}
		if rv.Target != nil {
			r.Target = grid.Vec3{X: rv.Target[0], Y: rv.Target[1], Z: rv.Target[2]}
		}
		w.resources[r.ID] = r
		w.index.Insert(r.ID, pos)
	}

	for _, sv := range snap.Stockpiles {
		pos := grid.Vec3{X: sv.Pos[0], Y: sv.Pos[1], Z: sv.Pos[2]}
		s := &Stockpile{
			ID:       EntityID(sv.ID),
			Pos:      pos,
			Capacity: sv.Capacity,
			Items:    map[string]int{},
		}
		for k, v := range sv.Items {
			s.Items[k] = v
		}
		w.stockpiles[s.ID] = s
		w.index.Insert(s.ID, pos)
	}

	for _, rel := range snap.Relations {
		if rel.Affinity != 0 {
			w.relations[pair(EntityID(rel.A), EntityID(rel.B))] = rel.Affinity
		}
	}

	return w, nil
}
