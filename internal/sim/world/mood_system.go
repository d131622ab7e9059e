package world

// Mood is recomputed from scratch every tick: a weighted sum of need
// deficits, nearby relationship affinities, recent trauma and the ambient
// environment, clamped to [-100,100]. It is derived state and is not
// persisted.

const moodSocialRadius = 8.0

func (w *World) systemMood() {
	for _, a := range w.sortedAgents() {
		if a.dead {
			continue
		}
		a.Mood = w.computeMood(a)
	}
}

func (w *World) computeMood(a *Agent) Mood {
	var f MoodFactors

	deficit := 0.0
	for _, k := range needOrder {
		deficit += 100 - a.Needs.Get(k)
	}
	f.NeedDeficit = -deficit / float64(needCount) * 0.6

	// Company matters: average affinity with agents close enough to see.
	sum, n := 0, 0
	for _, id := range w.index.QueryRadius(a.Pos, moodSocialRadius) {
		if id == a.ID {
			continue
		}
		if _, ok := w.agents[id]; !ok {
			continue
		}
		sum += w.Affinity(a.ID, id)
		n++
	}
	if n > 0 {
		f.Social = float64(sum) / float64(n) * 0.3
	}

	f.Trauma = -a.Trauma * 40

	t := w.grid.Temperature(a.Pos)
	switch {
	case t < 10:
		f.Environment = -float64(10-t) * 0.5
	case t > 30:
		f.Environment = -float64(t-30) * 0.8
	}

	return Mood{
		Value:   clampF(f.NeedDeficit+f.Social+f.Trauma+f.Environment, -100, 100),
		Factors: f,
	}
}
