package world

import (
	"fmt"

	"stonedelve.sim/internal/sim/grid"
)

// World edits are the external mutation surface for the voxel grid: set a
// cell's material by catalog id. Everything downstream (passability epoch,
// heat and support dirty sets, fluid displacement) flows through
// grid.SetMaterial, so an edit and a dig are indistinguishable to physics.

type editReq struct {
	pos      grid.Vec3
	material string
	reply    chan error
}

// ApplyWorldEdit mutates one cell. Must run on the simulation goroutine;
// external callers use Edit.
func (w *World) ApplyWorldEdit(pos grid.Vec3, material string) error {
	if !w.grid.InBounds(pos) {
		return fmt.Errorf("edit: position %v out of bounds", pos)
	}
	code, ok := w.cats.Materials.Code(material)
	if !ok {
		return fmt.Errorf("edit: unknown material %q", material)
	}
	if occ := w.grid.Occupant(pos); occ != 0 {
		if def := w.cats.Materials.Def(code); def.Solid || def.Magma {
			return fmt.Errorf("edit: cell %v occupied by entity %d", pos, occ)
		}
	}
	w.grid.SetMaterial(pos, code)
	return nil
}
