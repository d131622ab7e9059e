package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Catalogs bundles the content-addressed definition tables the kernel
// consumes as static input.
type Catalogs struct {
	Materials MaterialCatalog
	Items     ItemCatalog
}

// MaterialCatalog maps material ids to their physical properties. Palette
// order is deterministic (EMPTY first, the rest sorted) so uint16 material
// codes stay stable across runs with the same materials.json.
type MaterialCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]MaterialDef
	PaletteDigest string
	DefsDigest    string
}

type MaterialDef struct {
	ID    string `json:"id"`
	Solid bool   `json:"solid"`
	// Climbable cells carry the up/down edges of the movement graph
	// (stairs, ladders, ramps).
	Climbable bool `json:"climbable,omitempty"`
	Magma     bool `json:"magma,omitempty"`

	// Movement cost multiplier for passable cells, in permille of the base
	// step cost (1000 = neutral).
	MoveCostPermille int `json:"move_cost_permille,omitempty"`

	// Heat transfer rate toward the neighbor average, permille per tick.
	ConductivityPermille int `json:"conductivity_permille"`

	// Support contribution when this material backs a neighbor, and the
	// hardness a digger must overcome. Support is on the same scale as the
	// collapse threshold.
	Support  float64 `json:"support,omitempty"`
	Hardness int     `json:"hardness,omitempty"`

	// Item produced when a cell of this material is dug out.
	DropsItem string `json:"drops_item,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"` // "MATERIAL","FOOD","DRINK","TOOL"
	Weight int    `json:"weight,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadMaterials(filepath.Join(configDir, "materials.json"), &c.Materials); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MaterialCatalog) Def(code uint16) MaterialDef {
	if int(code) >= len(m.Palette) {
		return MaterialDef{}
	}
	return m.Defs[m.Palette[code]]
}

func (m *MaterialCatalog) Code(id string) (uint16, bool) {
	c, ok := m.Index[id]
	return c, ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadMaterials(path string, out *MaterialCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []MaterialDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("materials.json: %w", err)
	}
	out.Defs = map[string]MaterialDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("materials.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// EMPTY must exist and take palette code 0 so zeroed grids are open air.
	if _, ok := out.Defs["EMPTY"]; !ok {
		return fmt.Errorf("materials.json: missing EMPTY")
	}
	ids = append([]string{"EMPTY"}, filterOut(ids, "EMPTY")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func filterOut(ids []string, drop string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
