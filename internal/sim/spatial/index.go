// Package spatial maintains the bucketed entity index. Buckets are coarser
// than the voxel grid (8x8x1 by default, one bucket layer per z-level) and
// every live entity with a position appears in exactly one bucket: Move is
// called synchronously whenever a position changes, never deferred, so there
// is no lazy-deletion ambiguity.
package spatial

import (
	"fmt"
	"sort"

	"stonedelve.sim/internal/sim/grid"
)

// EntityID identifies an entity across the kernel. IDs are dense uint64s
// allocated by the world; 0 is never a valid id.
type EntityID uint64

type bucketKey struct{ X, Y, Z int }

type Index struct {
	bx, by, bz int

	buckets map[bucketKey]map[EntityID]struct{}
	pos     map[EntityID]grid.Vec3
}

func New(bucket [3]int) *Index {
	bx, by, bz := bucket[0], bucket[1], bucket[2]
	if bx <= 0 {
		bx = 8
	}
	if by <= 0 {
		by = 8
	}
	if bz <= 0 {
		bz = 1
	}
	return &Index{
		bx: bx, by: by, bz: bz,
		buckets: map[bucketKey]map[EntityID]struct{}{},
		pos:     map[EntityID]grid.Vec3{},
	}
}

func (ix *Index) key(v grid.Vec3) bucketKey {
	return bucketKey{floorDiv(v.X, ix.bx), floorDiv(v.Y, ix.by), floorDiv(v.Z, ix.bz)}
}

func (ix *Index) Insert(id EntityID, pos grid.Vec3) {
	if _, dup := ix.pos[id]; dup {
		panic(fmt.Sprintf("spatial: duplicate insert of entity %d", id))
	}
	k := ix.key(pos)
	b := ix.buckets[k]
	if b == nil {
		b = map[EntityID]struct{}{}
		ix.buckets[k] = b
	}
	b[id] = struct{}{}
	ix.pos[id] = pos
}

func (ix *Index) Move(id EntityID, newPos grid.Vec3) {
	old, ok := ix.pos[id]
	if !ok {
		panic(fmt.Sprintf("spatial: move of unknown entity %d", id))
	}
	from, to := ix.key(old), ix.key(newPos)
	if from != to {
		ix.removeFromBucket(from, id)
		b := ix.buckets[to]
		if b == nil {
			b = map[EntityID]struct{}{}
			ix.buckets[to] = b
		}
		b[id] = struct{}{}
	}
	ix.pos[id] = newPos
}

func (ix *Index) Remove(id EntityID) {
	old, ok := ix.pos[id]
	if !ok {
		return
	}
	ix.removeFromBucket(ix.key(old), id)
	delete(ix.pos, id)
}

func (ix *Index) removeFromBucket(k bucketKey, id EntityID) {
	if b := ix.buckets[k]; b != nil {
		delete(b, id)
		if len(b) == 0 {
			delete(ix.buckets, k)
		}
	}
}

func (ix *Index) Position(id EntityID) (grid.Vec3, bool) {
	p, ok := ix.pos[id]
	return p, ok
}

func (ix *Index) Len() int { return len(ix.pos) }

// QueryRegion returns ids of entities whose position lies inside the
// inclusive box [min,max], sorted for deterministic iteration.
func (ix *Index) QueryRegion(min, max grid.Vec3) []EntityID {
	var out []EntityID
	k0, k1 := ix.key(min), ix.key(max)
	for bz := k0.Z; bz <= k1.Z; bz++ {
		for by := k0.Y; by <= k1.Y; by++ {
			for bx := k0.X; bx <= k1.X; bx++ {
				for id := range ix.buckets[bucketKey{bx, by, bz}] {
					p := ix.pos[id]
					if p.X >= min.X && p.X <= max.X &&
						p.Y >= min.Y && p.Y <= max.Y &&
						p.Z >= min.Z && p.Z <= max.Z {
						out = append(out, id)
					}
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// QueryRadius returns ids within Euclidean distance r of center, sorted.
func (ix *Index) QueryRadius(center grid.Vec3, r float64) []EntityID {
	ri := int(r)
	min := grid.Vec3{X: center.X - ri, Y: center.Y - ri, Z: center.Z - ri}
	max := grid.Vec3{X: center.X + ri, Y: center.Y + ri, Z: center.Z + ri}
	box := ix.QueryRegion(min, max)
	out := box[:0]
	for _, id := range box {
		if grid.Euclid(center, ix.pos[id]) <= r {
			out = append(out, id)
		}
	}
	return out
}

// Nearest returns the closest entity to center accepted by the filter,
// searching outward in expanding bucket-sized rings. Ties break toward the
// lower id. maxR bounds the search radius.
func (ix *Index) Nearest(center grid.Vec3, maxR int, accept func(EntityID) bool) (EntityID, bool) {
	step := ix.bx
	if ix.by > step {
		step = ix.by
	}
	for r := step; ; r += step {
		ids := ix.QueryRadius(center, float64(r))
		best := EntityID(0)
		bestDist := float64(r) + 1
		for _, id := range ids {
			if accept != nil && !accept(id) {
				continue
			}
			d := grid.Euclid(center, ix.pos[id])
			if d < bestDist || (d == bestDist && (best == 0 || id < best)) {
				best, bestDist = id, d
			}
		}
		if best != 0 {
			return best, true
		}
		if r >= maxR {
			return 0, false
		}
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}
