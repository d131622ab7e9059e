package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// Digest hashes the complete observable state: tick, the grid layers, every
// entity in id order and the relationship table. Two worlds advanced in
// lockstep from the same seed must produce identical digests every tick;
// this is the backbone of the determinism tests and the tick log.
func (w *World) Digest() string {
	h := sha256.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], w.tick.Load())
	h.Write(buf[:])
	h.Write([]byte(w.grid.Digest()))

	for _, a := range w.sortedAgents() {
		binary.LittleEndian.PutUint64(buf[:], uint64(a.ID))
		h.Write(buf[:])
		h.Write([]byte(a.Name))
		writeVec(h.Write, a.Pos.X, a.Pos.Y, a.Pos.Z)
		for _, k := range needOrder {
			writeF(h.Write, a.Needs.Get(k))
		}
		writeF(h.Write, a.Health)
		writeF(h.Write, a.Stamina)
		writeF(h.Write, a.Trauma)
		writeF(h.Write, a.Stress)
		for s := 0; s < int(skillCount); s++ {
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Skills.Level[s]))
			h.Write(buf[:])
			writeF(h.Write, a.Skills.Exp[s])
		}
		kinds := make([]string, 0, len(a.Inventory.Items))
		for k := range a.Inventory.Items {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			h.Write([]byte(k))
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Inventory.Items[k]))
			h.Write(buf[:])
		}
	}

	for _, r := range w.sortedResources() {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.ID))
		h.Write(buf[:])
		h.Write([]byte(r.Kind))
		writeVec(h.Write, r.Pos.X, r.Pos.Y, r.Pos.Z)
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(r.Qty)))
		h.Write(buf[:])
	}

	for _, s := range w.sortedStockpiles() {
		binary.LittleEndian.PutUint64(buf[:], uint64(s.ID))
		h.Write(buf[:])
		writeVec(h.Write, s.Pos.X, s.Pos.Y, s.Pos.Z)
		kinds := make([]string, 0, len(s.Items))
		for k := range s.Items {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			h.Write([]byte(k))
			binary.LittleEndian.PutUint64(buf[:], uint64(s.Items[k]))
			h.Write(buf[:])
		}
	}

	for _, pk := range w.sortedPairs() {
		binary.LittleEndian.PutUint64(buf[:], uint64(pk.A))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(pk.B))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(w.relations[pk])))
		h.Write(buf[:])
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:])
}

func writeF(write func([]byte) (int, error), v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	write(buf[:])
}

func writeVec(write func([]byte) (int, error), x, y, z int) {
	var buf [8]byte
	for _, c := range [3]int{x, y, z} {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(c)))
		write(buf[:])
	}
}
