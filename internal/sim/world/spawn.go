package world

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"stonedelve.sim/internal/sim/grid"
)

// SpawnSpec is the JSON shape accepted by ApplySpawn. It is validated
// against spawnSchema before any state changes, so a bad spec can never
// half-apply.
type SpawnSpec struct {
	Kind string `json:"kind"`
	Pos  [3]int `json:"pos"`

	// Agents only. An empty name is filled deterministically from the seed.
	Name string `json:"name,omitempty"`

	// Consumables: remaining uses. Omitted or -1 means unlimited.
	Qty *int `json:"qty,omitempty"`

	// Stockpiles only; defaults from tuning when omitted.
	Capacity int `json:"capacity,omitempty"`

	// Worksites only: the solid cell designated for digging.
	Target *[3]int `json:"target,omitempty"`
}

const spawnSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["kind", "pos"],
  "properties": {
    "kind": {"enum": ["AGENT", "FOOD", "DRINK", "BED", "WORKSITE", "STOCKPILE"]},
    "pos": {"type": "array", "items": {"type": "integer"}, "minItems": 3, "maxItems": 3},
    "name": {"type": "string"},
    "qty": {"type": "integer", "minimum": -1},
    "capacity": {"type": "integer", "minimum": 1},
    "target": {"type": "array", "items": {"type": "integer"}, "minItems": 3, "maxItems": 3}
  },
  "additionalProperties": false
}`

var spawnSchema = jsonschema.MustCompileString("spawn.schema.json", spawnSchemaJSON)

func validateSpawn(spec SpawnSpec) error {
	raw, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if err := spawnSchema.Validate(doc); err != nil {
		return fmt.Errorf("spawn spec: %w", err)
	}
	return nil
}

type spawnReq struct {
	spec  SpawnSpec
	reply chan spawnResult
}

type spawnResult struct {
	id  EntityID
	err error
}

// ApplySpawn creates an entity from a validated spec. Must run on the
// simulation goroutine; external callers use Spawn.
func (w *World) ApplySpawn(spec SpawnSpec) (EntityID, error) {
	if err := validateSpawn(spec); err != nil {
		return 0, err
	}
	pos := grid.Vec3{X: spec.Pos[0], Y: spec.Pos[1], Z: spec.Pos[2]}
	if !w.grid.InBounds(pos) {
		return 0, fmt.Errorf("spawn: position %v out of bounds", pos)
	}

	switch spec.Kind {
	case "AGENT":
		return w.spawnAgent(spec, pos)
	case "STOCKPILE":
		return w.spawnStockpile(spec, pos)
	default:
		return w.spawnResource(spec, pos)
	}
}

func (w *World) spawnAgent(spec SpawnSpec, pos grid.Vec3) (EntityID, error) {
	if !w.grid.Passable(pos) {
		return 0, fmt.Errorf("spawn: agent position %v not passable", pos)
	}
	if occ := w.grid.Occupant(pos); occ != 0 {
		return 0, fmt.Errorf("spawn: position %v occupied by entity %d", pos, occ)
	}

	id := w.allocID()
	a := &Agent{
		ID:        id,
		Name:      spec.Name,
		Pos:       pos,
		Health:    100,
		Stamina:   100,
		Inventory: NewInventory(w.tune.CarryCapacity),
	}
	if a.Name == "" {
		a.Name = w.pickName(id)
	}

	// Fresh agents start comfortable but not identical: a small seeded
	// jitter staggers their first decisions so a crowd does not mob one
	// resource on the same tick.
	for _, k := range needOrder {
		base := 80 + w.hashRange(0, 15, uint64(id), uint64(k))
		a.Needs.Set(k, float64(base))
	}
	for s := SkillKind(0); s < skillCount; s++ {
		a.Skills.Level[s] = w.hashRange(0, 2, uint64(id), 0x51_11+uint64(s))
	}

	w.agents[id] = a
	w.index.Insert(id, pos)
	w.grid.SetOccupant(pos, uint64(id))
	return id, nil
}

func (w *World) spawnResource(spec SpawnSpec, pos grid.Vec3) (EntityID, error) {
	qty := -1
	if spec.Qty != nil {
		qty = *spec.Qty
	}
	if qty == 0 {
		return 0, fmt.Errorf("spawn: resource with zero quantity")
	}

	r := &Resource{
		ID:   w.allocID(),
		Kind: ResourceKind(spec.Kind),
		Pos:  pos,
		Qty:  qty,
	}
	if r.Kind == ResourceWorkSite {
		if spec.Target == nil {
			return 0, fmt.Errorf("spawn: worksite requires a target cell")
		}
		t := grid.Vec3{X: spec.Target[0], Y: spec.Target[1], Z: spec.Target[2]}
		if !w.grid.InBounds(t) {
			return 0, fmt.Errorf("spawn: worksite target %v out of bounds", t)
		}
		r.Target = t
	}

	w.resources[r.ID] = r
	w.index.Insert(r.ID, pos)
	return r.ID, nil
}

func (w *World) spawnStockpile(spec SpawnSpec, pos grid.Vec3) (EntityID, error) {
	cap := spec.Capacity
	if cap == 0 {
		cap = w.tune.StockpileCapacity
	}
	s := &Stockpile{
		ID:       w.allocID(),
		Pos:      pos,
		Capacity: cap,
		Items:    map[string]int{},
	}
	w.stockpiles[s.ID] = s
	w.index.Insert(s.ID, pos)
	return s.ID, nil
}

var dwarfFirstNames = []string{
	"Thorin", "Balin", "Dwalin", "Fili", "Kili", "Dori", "Nori", "Ori",
	"Oin", "Gloin", "Bifur", "Bofur", "Bombur", "Gimli", "Groin", "Thrain",
}

var dwarfLastNames = []string{
	"Ironforge", "Stonebeard", "Goldaxe", "Deepdelver", "Mountainheart",
	"Rockbreaker", "Gemcutter", "Forgehammer", "Ironfoot", "Stormshield",
}

func (w *World) pickName(id EntityID) string {
	first := dwarfFirstNames[w.hashRange(0, len(dwarfFirstNames)-1, uint64(id), 1)]
	last := dwarfLastNames[w.hashRange(0, len(dwarfLastNames)-1, uint64(id), 2)]
	return first + " " + last
}
