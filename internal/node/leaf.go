package node

import (
	"fmt"
	"sort"
)

// Leaf is an ordered sequence of cells, sorted strictly ascending by key.
type Leaf struct {
	Cells []Cell `json:"cells"`
}

// NumItems returns the number of cells in the leaf.
func (l *Leaf) NumItems() int {
	return len(l.Cells)
}

// Search returns (idx, true) if a cell with key k exists at idx, or
// (idx, false) where idx is the position a new cell with key k would
// occupy to keep the leaf's strict ascending order.
func (l *Leaf) Search(k uint64) (idx int, found bool) {
	idx = sort.Search(len(l.Cells), func(i int) bool { return l.Cells[i].Key >= k })
	if idx < len(l.Cells) && l.Cells[idx].Key == k {
		return idx, true
	}
	return idx, false
}

// GetAt returns the cell at idx, or false if idx is out of range.
func (l *Leaf) GetAt(idx int) (Cell, bool) {
	if idx < 0 || idx >= len(l.Cells) {
		return Cell{}, false
	}
	return l.Cells[idx], true
}

// InsertAt inserts a new cell at idx, shifting later cells right.
func (l *Leaf) InsertAt(idx int, c Cell) {
	l.Cells = append(l.Cells, Cell{})
	copy(l.Cells[idx+1:], l.Cells[idx:])
	l.Cells[idx] = c
}

// SetAt replaces the cell at idx.
func (l *Leaf) SetAt(idx int, c Cell) {
	l.Cells[idx] = c
}

// Split splits the leaf at its midpoint: the left half keeps indices
// [0, n/2), the right half keeps [n/2, n). It returns the two halves and
// the smallest key of the right half, the separator promoted to the parent.
func (l *Leaf) Split() (left, right *Leaf, promotedKey uint64) {
	n := len(l.Cells)
	mid := n / 2
	left = &Leaf{Cells: append([]Cell(nil), l.Cells[:mid]...)}
	right = &Leaf{Cells: append([]Cell(nil), l.Cells[mid:]...)}
	return left, right, right.Cells[0].Key
}

// SmallestKey returns the first cell's key.
func (l *Leaf) SmallestKey() uint64 {
	return l.Cells[0].Key
}

// LargestKey returns the last cell's key.
func (l *Leaf) LargestKey() uint64 {
	return l.Cells[len(l.Cells)-1].Key
}

// VerifyOrdering checks that keys are strictly ascending.
func (l *Leaf) VerifyOrdering() error {
	for i := 1; i < len(l.Cells); i++ {
		if !(l.Cells[i-1].Key < l.Cells[i].Key) {
			return fmt.Errorf("%w: leaf keys %d then %d at index %d", ErrKeyOutOfOrder, l.Cells[i-1].Key, l.Cells[i].Key, i)
		}
	}
	return nil
}
