package world

import (
	"errors"
	"sort"

	"stonedelve.sim/internal/sim/grid"
)

// ErrCapacityExceeded rejects writes that would overflow an inventory or
// stockpile. It is a recoverable outcome: the caller picks an alternative
// target (or keeps carrying).
var ErrCapacityExceeded = errors.New("capacity exceeded")

// Inventory is a bounded mapping from item kind to quantity. Each unit
// counts one point of carry weight, matching the reference model.
type Inventory struct {
	Items    map[string]int `json:"items"`
	Capacity int            `json:"capacity"`
}

func NewInventory(capacity int) Inventory {
	return Inventory{Items: map[string]int{}, Capacity: capacity}
}

func (inv *Inventory) Weight() int {
	total := 0
	for _, q := range inv.Items {
		total += q
	}
	return total
}

func (inv *Inventory) Add(kind string, qty int) error {
	if qty <= 0 {
		return nil
	}
	if inv.Weight()+qty > inv.Capacity {
		return ErrCapacityExceeded
	}
	if inv.Items == nil {
		inv.Items = map[string]int{}
	}
	inv.Items[kind] += qty
	return nil
}

// Remove takes up to qty of kind and returns the amount actually removed.
func (inv *Inventory) Remove(kind string, qty int) int {
	have := inv.Items[kind]
	if have == 0 {
		return 0
	}
	if qty > have {
		qty = have
	}
	if qty == have {
		delete(inv.Items, kind)
	} else {
		inv.Items[kind] -= qty
	}
	return qty
}

func (inv *Inventory) Count(kind string) int { return inv.Items[kind] }

// Stockpile is a capacity-bounded storage location. Agents reference
// stockpiles, they never own the contents.
type Stockpile struct {
	ID       EntityID
	Pos      grid.Vec3
	Capacity int
	Items    map[string]int
}

func (s *Stockpile) Total() int {
	total := 0
	for _, q := range s.Items {
		total += q
	}
	return total
}

func (s *Stockpile) Deposit(kind string, qty int) error {
	if qty <= 0 {
		return nil
	}
	if s.Total()+qty > s.Capacity {
		return ErrCapacityExceeded
	}
	if s.Items == nil {
		s.Items = map[string]int{}
	}
	s.Items[kind] += qty
	return nil
}

func (s *Stockpile) Withdraw(kind string, qty int) int {
	have := s.Items[kind]
	if have == 0 {
		return 0
	}
	if qty > have {
		qty = have
	}
	if qty == have {
		delete(s.Items, kind)
	} else {
		s.Items[kind] -= qty
	}
	return qty
}

// depositAll empties the agent's inventory into reachable stockpiles,
// nearest first; a full stockpile is skipped in favor of the next one. Items
// that fit nowhere stay carried.
func (w *World) depositAll(a *Agent) {
	if a.Inventory.Weight() == 0 || len(w.stockpiles) == 0 {
		return
	}
	piles := w.sortedStockpiles()
	sort.SliceStable(piles, func(i, j int) bool {
		return grid.Euclid(a.Pos, piles[i].Pos) < grid.Euclid(a.Pos, piles[j].Pos)
	})

	kinds := make([]string, 0, len(a.Inventory.Items))
	for k := range a.Inventory.Items {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		qty := a.Inventory.Count(kind)
		for _, p := range piles {
			if qty == 0 {
				break
			}
			space := p.Capacity - p.Total()
			if space <= 0 {
				continue
			}
			mv := qty
			if mv > space {
				mv = space
			}
			if err := p.Deposit(kind, mv); err != nil {
				continue
			}
			a.Inventory.Remove(kind, mv)
			qty -= mv
		}
	}
}
