package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigs(t *testing.T, materials, items string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "materials.json"), []byte(materials), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(items), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

const goodMaterials = `[
  {"id": "STONE", "solid": true, "conductivity_permille": 100, "support": 1.0},
  {"id": "EMPTY", "conductivity_permille": 300},
  {"id": "SOIL", "solid": true, "conductivity_permille": 150, "support": 0.8}
]`

const goodItems = `[
  {"id": "STONE_BLOCK", "kind": "MATERIAL", "weight": 1},
  {"id": "MUSHROOM", "kind": "FOOD", "weight": 1}
]`

func TestLoadAssignsStableCodes(t *testing.T) {
	dir := writeConfigs(t, goodMaterials, goodItems)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// EMPTY is always code 0 so zeroed grids are open air; the rest sort.
	if c.Materials.Palette[0] != "EMPTY" {
		t.Fatalf("palette[0] = %q", c.Materials.Palette[0])
	}
	if code, ok := c.Materials.Code("SOIL"); !ok || code != 1 {
		t.Fatalf("SOIL code = %d, %v", code, ok)
	}
	if code, ok := c.Materials.Code("STONE"); !ok || code != 2 {
		t.Fatalf("STONE code = %d, %v", code, ok)
	}
	if def := c.Materials.Def(2); def.ID != "STONE" || !def.Solid {
		t.Fatalf("Def(2) = %+v", def)
	}
	if c.Materials.PaletteDigest == "" || c.Materials.DefsDigest == "" {
		t.Fatalf("material digests unset")
	}

	if c.Items.Palette[0] != "MUSHROOM" || c.Items.Palette[1] != "STONE_BLOCK" {
		t.Fatalf("item palette = %v", c.Items.Palette)
	}
}

func TestLoadDigestsAreReproducible(t *testing.T) {
	dir := writeConfigs(t, goodMaterials, goodItems)
	a, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Materials.PaletteDigest != b.Materials.PaletteDigest ||
		a.Materials.DefsDigest != b.Materials.DefsDigest ||
		a.Items.PaletteDigest != b.Items.PaletteDigest {
		t.Fatalf("digests differ across identical loads")
	}
}

func TestLoadRequiresEmpty(t *testing.T) {
	dir := writeConfigs(t, `[{"id": "STONE", "solid": true, "conductivity_permille": 100}]`, goodItems)
	if _, err := Load(dir); err == nil {
		t.Fatalf("Load accepted a catalog without EMPTY")
	}
}

func TestLoadRejectsEmptyID(t *testing.T) {
	dir := writeConfigs(t, `[{"id": "", "conductivity_permille": 100}]`, goodItems)
	if _, err := Load(dir); err == nil {
		t.Fatalf("Load accepted an empty material id")
	}
}
