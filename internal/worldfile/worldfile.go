// Package worldfile loads declarative world definitions: grid dimensions,
// explicit cell runs, fluid sources and the initial entity roster. A world
// file plus a materials catalog fully determines tick-0 state.
package worldfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"stonedelve.sim/internal/sim/catalogs"
	"stonedelve.sim/internal/sim/grid"
	"stonedelve.sim/internal/sim/tuning"
	"stonedelve.sim/internal/sim/world"
)

type File struct {
	ID   string `json:"id"`
	Seed int64  `json:"seed"`

	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`

	// Box fills apply in order; later boxes overwrite earlier ones.
	Fills []Fill `json:"fills,omitempty"`

	// Individual cell overrides apply after fills.
	Cells []Cell `json:"cells,omitempty"`

	Sources [][3]int `json:"sources,omitempty"`

	Spawns []world.SpawnSpec `json:"spawns,omitempty"`
}

type Fill struct {
	Min      [3]int `json:"min"`
	Max      [3]int `json:"max"`
	Material string `json:"material"`
}

type Cell struct {
	Pos      [3]int `json:"pos"`
	Material string `json:"material"`
}

const fileSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "width", "height", "depth"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "seed": {"type": "integer"},
    "width": {"type": "integer", "minimum": 1},
    "height": {"type": "integer", "minimum": 1},
    "depth": {"type": "integer", "minimum": 1},
    "fills": {"type": "array", "items": {
      "type": "object",
      "required": ["min", "max", "material"],
      "properties": {
        "min": {"type": "array", "items": {"type": "integer"}, "minItems": 3, "maxItems": 3},
        "max": {"type": "array", "items": {"type": "integer"}, "minItems": 3, "maxItems": 3},
        "material": {"type": "string"}
      },
      "additionalProperties": false
    }},
    "cells": {"type": "array", "items": {
      "type": "object",
      "required": ["pos", "material"],
      "properties": {
        "pos": {"type": "array", "items": {"type": "integer"}, "minItems": 3, "maxItems": 3},
        "material": {"type": "string"}
      },
      "additionalProperties": false
    }},
    "sources": {"type": "array", "items": {
      "type": "array", "items": {"type": "integer"}, "minItems": 3, "maxItems": 3
    }},
    "spawns": {"type": "array", "items": {"type": "object"}}
  },
  "additionalProperties": false
}`

var fileSchema = jsonschema.MustCompileString("worldfile.schema.json", fileSchemaJSON)

func Parse(raw []byte) (File, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return File{}, fmt.Errorf("worldfile: %w", err)
	}
	if err := fileSchema.Validate(doc); err != nil {
		return File{}, fmt.Errorf("worldfile: %w", err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("worldfile: %w", err)
	}
	return f, nil
}

func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(raw)
}

// Build materializes the file into a ready world: grid filled, sources
// registered, roster spawned. Spawns apply in file order so entity ids are
// reproducible.
func Build(f File, tune tuning.Tuning, cats *catalogs.Catalogs) (*world.World, error) {
	g, err := grid.New(&cats.Materials, world.GridParams(tune), f.Width, f.Height, f.Depth)
	if err != nil {
		return nil, err
	}

	for _, fill := range f.Fills {
		code, ok := cats.Materials.Code(fill.Material)
		if !ok {
			return nil, fmt.Errorf("worldfile: unknown material %q", fill.Material)
		}
		for z := fill.Min[2]; z <= fill.Max[2]; z++ {
			for y := fill.Min[1]; y <= fill.Max[1]; y++ {
				for x := fill.Min[0]; x <= fill.Max[0]; x++ {
					v := grid.Vec3{X: x, Y: y, Z: z}
					if !g.InBounds(v) {
						return nil, fmt.Errorf("worldfile: fill cell %v out of bounds", v)
					}
					g.SetMaterial(v, code)
				}
			}
		}
	}
	for _, c := range f.Cells {
		code, ok := cats.Materials.Code(c.Material)
		if !ok {
			return nil, fmt.Errorf("worldfile: unknown material %q", c.Material)
		}
		v := grid.Vec3{X: c.Pos[0], Y: c.Pos[1], Z: c.Pos[2]}
		if !g.InBounds(v) {
			return nil, fmt.Errorf("worldfile: cell %v out of bounds", v)
		}
		g.SetMaterial(v, code)
	}
	for _, s := range f.Sources {
		v := grid.Vec3{X: s[0], Y: s[1], Z: s[2]}
		if !g.InBounds(v) {
			return nil, fmt.Errorf("worldfile: source %v out of bounds", v)
		}
		g.AddFluidSource(v)
	}

	w := world.New(world.Config{ID: f.ID, Seed: f.Seed}, tune, cats, g)
	for i, spec := range f.Spawns {
		if _, err := w.ApplySpawn(spec); err != nil {
			return nil, fmt.Errorf("worldfile: spawn %d: %w", i, err)
		}
	}
	return w, nil
}
