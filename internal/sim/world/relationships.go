package world

import "sort"

// Relationships are stored sparsely, keyed by the unordered entity-id pair
// with a neutral default of zero, so an idle colony costs no O(n^2) memory.
// Affinity is bounded [-100,100].

type pairKey struct{ A, B EntityID }

func pair(a, b EntityID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

func (w *World) Affinity(a, b EntityID) int {
	if a == b {
		return 0
	}
	return w.relations[pair(a, b)]
}

func (w *World) addAffinity(a, b EntityID, delta int) {
	if a == b || delta == 0 {
		return
	}
	k := pair(a, b)
	v := w.relations[k] + delta
	if v > 100 {
		v = 100
	}
	if v < -100 {
		v = -100
	}
	if v == 0 {
		delete(w.relations, k)
		return
	}
	w.relations[k] = v
}

// systemRelationships drifts every affinity one point toward neutral. Runs
// on the relationship interval, not every tick.
func (w *World) systemRelationships() {
	for k, v := range w.relations {
		if v > 0 {
			v--
		} else {
			v++
		}
		if v == 0 {
			delete(w.relations, k)
		} else {
			w.relations[k] = v
		}
	}
}

func (w *World) sortedPairs() []pairKey {
	out := make([]pairKey, 0, len(w.relations))
	for k := range w.relations {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

func (w *World) dropRelations(id EntityID) {
	for k := range w.relations {
		if k.A == id || k.B == id {
			delete(w.relations, k)
		}
	}
}
