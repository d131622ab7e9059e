package world

// Deterministic hash mixing for everything "random" in the kernel: spawn
// jitter, name picks, idle wandering. Keeping all randomness a pure
// function of (seed, inputs) means snapshots need no generator state and
// two worlds with the same seed stay in lockstep.

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (w *World) hash(parts ...uint64) uint64 {
	v := uint64(w.cfg.Seed)
	for _, p := range parts {
		v = mix64(v ^ p)
	}
	return v
}

// hashRange returns a deterministic value in [lo,hi].
func (w *World) hashRange(lo, hi int, parts ...uint64) int {
	if hi <= lo {
		return lo
	}
	return lo + int(w.hash(parts...)%uint64(hi-lo+1))
}
