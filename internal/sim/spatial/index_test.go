package spatial

import (
	"testing"

	"stonedelve.sim/internal/sim/grid"
)

func newTestIndex() *Index {
	return New([3]int{8, 8, 1})
}

func TestInsertMoveRemove(t *testing.T) {
	ix := newTestIndex()
	ix.Insert(1, grid.Vec3{X: 0, Y: 0, Z: 0})
	ix.Insert(2, grid.Vec3{X: 20, Y: 20, Z: 0})

	if ix.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ix.Len())
	}
	if p, ok := ix.Position(1); !ok || p != (grid.Vec3{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("Position(1) = %v, %v", p, ok)
	}

	// Cross-bucket move.
	ix.Move(1, grid.Vec3{X: 30, Y: 30, Z: 0})
	if p, _ := ix.Position(1); p != (grid.Vec3{X: 30, Y: 30, Z: 0}) {
		t.Fatalf("after move, Position(1) = %v", p)
	}
	got := ix.QueryRegion(grid.Vec3{X: 0, Y: 0, Z: 0}, grid.Vec3{X: 10, Y: 10, Z: 0})
	if len(got) != 0 {
		t.Fatalf("old bucket still lists moved entity: %v", got)
	}

	ix.Remove(1)
	if _, ok := ix.Position(1); ok {
		t.Fatalf("removed entity still present")
	}
	// Remove of an absent id is a no-op.
	ix.Remove(99)
}

func TestDuplicateInsertPanics(t *testing.T) {
	ix := newTestIndex()
	ix.Insert(1, grid.Vec3{X: 0, Y: 0, Z: 0})
	defer func() {
		if recover() == nil {
			t.Fatalf("duplicate insert must panic")
		}
	}()
	ix.Insert(1, grid.Vec3{X: 1, Y: 1, Z: 0})
}

func TestQueryRegionInclusiveAndSorted(t *testing.T) {
	ix := newTestIndex()
	ix.Insert(3, grid.Vec3{X: 5, Y: 5, Z: 0})
	ix.Insert(1, grid.Vec3{X: 0, Y: 0, Z: 0})
	ix.Insert(2, grid.Vec3{X: 10, Y: 10, Z: 0})
	ix.Insert(4, grid.Vec3{X: 11, Y: 10, Z: 0})

	got := ix.QueryRegion(grid.Vec3{X: 0, Y: 0, Z: 0}, grid.Vec3{X: 10, Y: 10, Z: 0})
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("QueryRegion = %v, want [1 2 3]", got)
	}
}

func TestQueryRegionNegativeCoordinates(t *testing.T) {
	ix := newTestIndex()
	ix.Insert(1, grid.Vec3{X: -5, Y: -5, Z: 0})
	ix.Insert(2, grid.Vec3{X: -20, Y: -20, Z: 0})

	got := ix.QueryRegion(grid.Vec3{X: -10, Y: -10, Z: 0}, grid.Vec3{X: 0, Y: 0, Z: 0})
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("QueryRegion = %v, want [1]", got)
	}
}

func TestQueryRadius(t *testing.T) {
	ix := newTestIndex()
	ix.Insert(1, grid.Vec3{X: 0, Y: 0, Z: 0})
	ix.Insert(2, grid.Vec3{X: 3, Y: 4, Z: 0}) // distance 5
	ix.Insert(3, grid.Vec3{X: 10, Y: 0, Z: 0})

	got := ix.QueryRadius(grid.Vec3{X: 0, Y: 0, Z: 0}, 5)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("QueryRadius = %v, want [1 2]", got)
	}
}

func TestNearestPrefersCloserThenLowerID(t *testing.T) {
	ix := newTestIndex()
	ix.Insert(5, grid.Vec3{X: 2, Y: 0, Z: 0})
	ix.Insert(9, grid.Vec3{X: 6, Y: 0, Z: 0})

	id, ok := ix.Nearest(grid.Vec3{X: 0, Y: 0, Z: 0}, 100, nil)
	if !ok || id != 5 {
		t.Fatalf("Nearest = %d, %v; want 5", id, ok)
	}

	// Equidistant: lower id wins.
	ix2 := newTestIndex()
	ix2.Insert(7, grid.Vec3{X: 3, Y: 0, Z: 0})
	ix2.Insert(4, grid.Vec3{X: -3, Y: 0, Z: 0})
	id, ok = ix2.Nearest(grid.Vec3{X: 0, Y: 0, Z: 0}, 100, nil)
	if !ok || id != 4 {
		t.Fatalf("Nearest tie = %d, %v; want 4", id, ok)
	}
}

func TestNearestHonorsFilterAndBound(t *testing.T) {
	ix := newTestIndex()
	ix.Insert(1, grid.Vec3{X: 1, Y: 0, Z: 0})
	ix.Insert(2, grid.Vec3{X: 4, Y: 0, Z: 0})

	id, ok := ix.Nearest(grid.Vec3{X: 0, Y: 0, Z: 0}, 100, func(id EntityID) bool { return id != 1 })
	if !ok || id != 2 {
		t.Fatalf("filtered Nearest = %d, %v; want 2", id, ok)
	}

	ix2 := newTestIndex()
	ix2.Insert(1, grid.Vec3{X: 50, Y: 0, Z: 0})
	if _, ok := ix2.Nearest(grid.Vec3{X: 0, Y: 0, Z: 0}, 8, nil); ok {
		t.Fatalf("Nearest must respect the radius bound")
	}
}
