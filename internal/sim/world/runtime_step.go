package world

import (
	"time"
)

// stepInternal advances the world one tick. Phase order is fixed and is the
// determinism contract: pending requests, physics, needs, mood, decisions,
// movement, periodic relationship drift, then the lifecycle sweep.
func (w *World) stepInternal(spawns []spawnReq, edits []editReq) {
	stepStart := time.Now()
	nowTick := w.tick.Load()
	dt := w.DT()

	// Externally queued mutations apply at the tick boundary, in arrival
	// order, before any system runs.
	var recordedSpawns []SpawnSpec
	for _, req := range spawns {
		id, err := w.ApplySpawn(req.spec)
		if req.reply != nil {
			req.reply <- spawnResult{id: id, err: err}
		}
		if err == nil {
			recordedSpawns = append(recordedSpawns, req.spec)
		}
	}
	var recordedEdits []RecordedEdit
	for _, req := range edits {
		err := w.ApplyWorldEdit(req.pos, req.material)
		if req.reply != nil {
			req.reply <- err
		}
		if err == nil {
			recordedEdits = append(recordedEdits, RecordedEdit{
				Pos:      [3]int{req.pos.X, req.pos.Y, req.pos.Z},
				Material: req.material,
			})
		}
	}

	// Physics first: heat, fluid, structural collapse.
	w.grid.Step()
	w.applyCollapseTrauma()

	w.systemNeeds(dt)
	w.systemMood()
	w.systemDecisions()
	w.systemMovement()

	if w.tune.RelationshipEveryTicks > 0 && nowTick%uint64(w.tune.RelationshipEveryTicks) == 0 && nowTick != 0 {
		w.systemRelationships()
	}

	w.systemLifecycle()

	digest := w.Digest()
	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0

	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:   nowTick,
			Agents: len(w.agents),
			Epoch:  w.grid.Epoch(),
			StepMS: stepMS,
			Digest: digest,

			Spawns: recordedSpawns,
			Edits:  recordedEdits,
		})
	}

	// Snapshot every N ticks, starting after tick 0. Export runs on the sim
	// goroutine; the sink goroutine does the compression and disk write.
	if w.snapshotSink != nil && nowTick != 0 && w.tune.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.tune.SnapshotEveryTicks) == 0 {
			select {
			case w.snapshotSink <- w.Export():
			default:
				// Sink backed up; skip rather than stall the tick.
			}
		}
	}

	w.tick.Add(1)
}

// Step advances one tick with no pending external requests. Callers own the
// goroutine discipline (single-threaded or via Run).
func (w *World) Step() {
	w.stepInternal(nil, nil)
}

// StepOnce advances one tick and reports the tick it executed plus the
// post-tick state digest, for deterministic replays and lockstep tests.
func (w *World) StepOnce() (tick uint64, digest string) {
	tick = w.tick.Load()
	w.Step()
	return tick, w.Digest()
}
