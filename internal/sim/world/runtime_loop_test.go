package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"stonedelve.sim/internal/sim/grid"
)

func TestRunAppliesQueuedRequests(t *testing.T) {
	w := buildColony(t, 21)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	id, err := w.Spawn(ctx, SpawnSpec{Kind: "FOOD", Pos: [3]int{2, 3, 0}, Qty: qty(5)})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if id == 0 {
		t.Fatalf("Spawn returned zero id")
	}
	if err := w.Edit(ctx, grid.Vec3{X: 1, Y: 14, Z: 0}, "STONE"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	// A bad spec must come back as an error through the same channel path.
	if _, err := w.Spawn(ctx, SpawnSpec{Kind: "DRAGON", Pos: [3]int{1, 1, 0}}); err == nil {
		t.Fatalf("invalid spawn accepted")
	}

	var tick uint64
	var view EntityView
	var found bool
	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if err := w.Do(ctx, func(w *World) {
			tick = w.Tick()
			view, found = w.Entity(id)
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if tick >= 3 && found {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if tick < 3 {
		t.Fatalf("simulation never advanced, tick=%d", tick)
	}
	if !found || view.Kind != "FOOD" || view.Qty != 5 {
		t.Fatalf("queued spawn not applied: found=%v view=%+v", found, view)
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w := buildColony(t, 22)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not exit after cancel")
	}
}

func TestSetSimulationSpeedBounds(t *testing.T) {
	w := buildColony(t, 23)
	if err := w.SetSimulationSpeed(-1); err == nil {
		t.Fatalf("negative speed accepted")
	}
	if err := w.SetSimulationSpeed(65); err == nil {
		t.Fatalf("speed above the cap accepted")
	}
	for _, s := range []float64{0, 0.5, 1, 4, 64} {
		if err := w.SetSimulationSpeed(s); err != nil {
			t.Fatalf("SetSimulationSpeed(%v): %v", s, err)
		}
	}
}
