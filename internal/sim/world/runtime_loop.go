package world

import (
	"context"
	"fmt"
	"time"

	"stonedelve.sim/internal/sim/grid"
)

// Run owns the simulation goroutine: a fixed-rate ticker drives stepInternal,
// and every externally queued request is drained at the tick boundary.
// Read-only queries execute as they arrive, still on this goroutine, so they
// see a consistent world without locks.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingSpawns []spawnReq
	var pendingEdits []editReq

	// Speed control: each ticker fire deposits speedMilli thousandths of a
	// tick; whole ticks are stepped off the accumulator. At 500 the world
	// runs half speed, at 4000 it steps four times per fire.
	var accMilli int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.spawnCh:
			pendingSpawns = append(pendingSpawns, req)
		case req := <-w.editCh:
			pendingEdits = append(pendingEdits, req)
		case fn := <-w.queryCh:
			fn(w)
		case <-ticker.C:
			accMilli += w.speedMilli.Load()
			for accMilli >= 1000 {
				accMilli -= 1000
				w.stepInternal(pendingSpawns, pendingEdits)
				pendingSpawns = pendingSpawns[:0]
				pendingEdits = pendingEdits[:0]
			}
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// SetSimulationSpeed scales the tick rate without changing dt: 1.0 is real
// time, 0 pauses. The change takes effect at the next ticker fire.
func (w *World) SetSimulationSpeed(mult float64) error {
	if mult < 0 || mult > 64 {
		return fmt.Errorf("simulation speed %v out of range [0,64]", mult)
	}
	w.speedMilli.Store(int64(mult * 1000))
	return nil
}

// Spawn queues a spawn for the next tick boundary and waits for the result.
func (w *World) Spawn(ctx context.Context, spec SpawnSpec) (EntityID, error) {
	reply := make(chan spawnResult, 1)
	select {
	case w.spawnCh <- spawnReq{spec: spec, reply: reply}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.id, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Edit queues a world edit for the next tick boundary and waits for the
// result.
func (w *World) Edit(ctx context.Context, pos grid.Vec3, material string) error {
	reply := make(chan error, 1)
	select {
	case w.editCh <- editReq{pos: pos, material: material, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the simulation goroutine and waits for it to finish. It is
// the only safe way to read world state while Run is active.
func (w *World) Do(ctx context.Context, fn func(*World)) error {
	done := make(chan struct{})
	wrapped := func(w *World) {
		fn(w)
		close(done)
	}
	select {
	case w.queryCh <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
