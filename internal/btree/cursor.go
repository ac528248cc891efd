package btree

import (
	"fmt"

	"github.com/dbcore/pagestore/internal/node"
	"github.com/dbcore/pagestore/internal/pager"
)

// stackFrame is one level of the cursor's descent stack: the interior page
// visited and which edge was selected there.
type stackFrame struct {
	pageIdx pager.PageIndex
	edgeIdx int
}

// leafPosition is the cursor's current row, if any.
type leafPosition struct {
	pageIdx  pager.PageIndex
	entryIdx int
}

// Cursor navigates and mutates one named tree. A readonly cursor may
// coexist with other readonly cursors; a readwrite cursor excludes all
// others (enforced by the pager's borrow registry, acquired when the
// cursor was opened and released by Close).
//
// An absent leaf position means the cursor is Unpositioned; Next, Prev,
// GetEntry and Insert behave accordingly. Insert does not depend on, and
// does not update, the cursor's navigation position: it descends from the
// tree's root independently on every call.
type Cursor struct {
	tree      *BTree
	treeName  string
	stack     []stackFrame
	leafPos   *leafPosition
	readWrite bool
	release   func()
	closed    bool
}

// Close releases the cursor's borrow on the pager. It is safe to call more
// than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.release != nil {
		c.release()
	}
	return nil
}

// Positioned reports whether the cursor currently points at a row.
func (c *Cursor) Positioned() bool {
	return c.leafPos != nil
}

func (c *Cursor) decode(idx pager.PageIndex) (node.Page, error) {
	return pager.GetAndDecode[node.Page](c.tree.pager, idx)
}

func (c *Cursor) root() (pager.PageIndex, error) {
	idx, ok, err := c.tree.pager.GetRoot(c.treeName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTree, c.treeName)
	}
	return idx, nil
}

// descendExtreme walks from start to a leaf, always taking edge 0 (dir>0)
// or the last edge (dir<0) at every interior, appending a stack frame for
// each interior visited. It returns the leaf reached.
func (c *Cursor) descendExtreme(start pager.PageIndex, dir int, stack *[]stackFrame) (pager.PageIndex, error) {
	cur := start
	for {
		page, err := c.decode(cur)
		if err != nil {
			return 0, err
		}
		if page.IsLeaf() {
			return cur, nil
		}
		if !page.IsInterior() {
			return 0, fmt.Errorf("btree: descent reached an overflow page at %d", cur)
		}
		edgeIdx := 0
		if dir < 0 {
			edgeIdx = page.Interior.NumEdges() - 1
		}
		*stack = append(*stack, stackFrame{pageIdx: cur, edgeIdx: edgeIdx})
		cur = pager.PageIndex(page.Interior.GetChild(edgeIdx))
	}
}

// First descends always taking the leftmost edge, landing on the first
// entry of the leftmost leaf. An empty tree leaves the cursor unpositioned.
func (c *Cursor) First() error {
	root, err := c.root()
	if err != nil {
		return err
	}
	var stack []stackFrame
	leafIdx, err := c.descendExtreme(root, +1, &stack)
	if err != nil {
		return err
	}
	leafPage, err := c.decode(leafIdx)
	if err != nil {
		return err
	}
	c.stack = stack
	if leafPage.Leaf.NumItems() == 0 {
		c.leafPos = nil
		return nil
	}
	c.leafPos = &leafPosition{pageIdx: leafIdx, entryIdx: 0}
	return nil
}

// Last descends always taking the rightmost edge, landing on the last
// entry of the rightmost leaf. An empty tree leaves the cursor unpositioned.
func (c *Cursor) Last() error {
	root, err := c.root()
	if err != nil {
		return err
	}
	var stack []stackFrame
	leafIdx, err := c.descendExtreme(root, -1, &stack)
	if err != nil {
		return err
	}
	leafPage, err := c.decode(leafIdx)
	if err != nil {
		return err
	}
	c.stack = stack
	if leafPage.Leaf.NumItems() == 0 {
		c.leafPos = nil
		return nil
	}
	c.leafPos = &leafPosition{pageIdx: leafIdx, entryIdx: leafPage.Leaf.NumItems() - 1}
	return nil
}

// Find descends via each interior's search, landing at the leaf index the
// leaf's own search returns — whether or not key is actually present.
// Callers distinguish "found" from "not found" by inspecting the key at
// the entry GetEntry returns.
func (c *Cursor) Find(key uint64) error {
	root, err := c.root()
	if err != nil {
		return err
	}
	var stack []stackFrame
	cur := root
	for {
		page, err := c.decode(cur)
		if err != nil {
			return err
		}
		if page.IsInterior() {
			edgeIdx, child := page.Interior.Search(key)
			stack = append(stack, stackFrame{pageIdx: cur, edgeIdx: edgeIdx})
			cur = pager.PageIndex(child)
			continue
		}
		idx, _ := page.Leaf.Search(key)
		c.stack = stack
		c.leafPos = &leafPosition{pageIdx: cur, entryIdx: idx}
		return nil
	}
}

// Next advances to the next entry in ascending key order, or unpositions
// the cursor if there is none.
func (c *Cursor) Next() error {
	return c.move(+1)
}

// Prev moves to the previous entry in ascending key order, or unpositions
// the cursor if there is none.
func (c *Cursor) Prev() error {
	return c.move(-1)
}

func (c *Cursor) move(dir int) error {
	if c.leafPos == nil {
		return nil
	}

	leafPage, err := c.decode(c.leafPos.pageIdx)
	if err != nil {
		return err
	}
	if newIdx := c.leafPos.entryIdx + dir; newIdx >= 0 && newIdx < leafPage.Leaf.NumItems() {
		c.leafPos.entryIdx = newIdx
		return nil
	}

	for len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]

		parentPage, err := c.decode(top.pageIdx)
		if err != nil {
			return err
		}
		newEdge := top.edgeIdx + dir
		if newEdge < 0 || newEdge >= parentPage.Interior.NumEdges() {
			continue
		}

		c.stack = append(c.stack, stackFrame{pageIdx: top.pageIdx, edgeIdx: newEdge})
		childIdx := pager.PageIndex(parentPage.Interior.GetChild(newEdge))
		leafIdx, err := c.descendExtreme(childIdx, dir, &c.stack)
		if err != nil {
			return err
		}
		leafPage2, err := c.decode(leafIdx)
		if err != nil {
			return err
		}
		entryIdx := 0
		if dir < 0 {
			entryIdx = leafPage2.Leaf.NumItems() - 1
		}
		c.leafPos = &leafPosition{pageIdx: leafIdx, entryIdx: entryIdx}
		return nil
	}

	c.leafPos = nil
	return nil
}

// GetEntry returns a cell reader over the entry at the cursor's current
// position, or ok=false if the cursor is unpositioned or its position no
// longer names an entry (e.g. Find landed past the end of the leaf).
func (c *Cursor) GetEntry() (reader *CellReader, ok bool, err error) {
	if c.leafPos == nil {
		return nil, false, nil
	}
	leafPage, err := c.decode(c.leafPos.pageIdx)
	if err != nil {
		return nil, false, err
	}
	cell, ok := leafPage.Leaf.GetAt(c.leafPos.entryIdx)
	if !ok {
		return nil, false, nil
	}
	return newCellReader(c.tree.pager, cell), true, nil
}

// Insert writes (key, value), replacing any existing cell for key. It
// requires a readwrite cursor. An empty value is a precondition violation
// and aborts the process, per the storage core's error taxonomy.
//
// Insert descends from the tree's root independently of the cursor's
// current navigation position and does not update that position; a split
// triggered by this call may move entries the cursor was pointing at.
func (c *Cursor) Insert(key uint64, value []byte) error {
	if !c.readWrite {
		return fmt.Errorf("btree: insert requires a readwrite cursor")
	}
	if len(value) == 0 {
		panic("btree: precondition violation: insert requires a non-empty value")
	}

	var cell node.Cell
	if len(value) > c.tree.chunkThreshold {
		head := append([]byte(nil), value[:c.tree.chunkThreshold]...)
		tail := value[c.tree.chunkThreshold:]
		first, err := writeOverflowChain(c.tree.pager, tail, c.tree.overflowChunkSize)
		if err != nil {
			return err
		}
		cont := uint32(first)
		cell = node.Cell{Key: key, Value: head, Continuation: &cont}
	} else {
		cell = node.NewCell(key, append([]byte(nil), value...))
	}

	root, err := c.root()
	if err != nil {
		return err
	}

	var pathStack []pager.PageIndex
	cur := root
	for {
		page, err := c.decode(cur)
		if err != nil {
			return err
		}
		if page.IsInterior() {
			_, child := page.Interior.Search(key)
			pathStack = append(pathStack, cur)
			cur = pager.PageIndex(child)
			continue
		}

		idx, found := page.Leaf.Search(key)
		var oldCell node.Cell
		var hadOld bool
		if found {
			oldCell, hadOld = page.Leaf.GetAt(idx)
			page.Leaf.SetAt(idx, cell)
		} else {
			page.Leaf.InsertAt(idx, cell)
		}

		if err := c.updatePage(cur, page, pathStack); err != nil {
			return err
		}

		// The prior cell's overflow chain, if any, is no longer referenced
		// once its slot is overwritten; free it now rather than leaking it
		// the way a replace-without-reclaim would.
		if hadOld && oldCell.Continuation != nil {
			if err := freeOverflowChain(c.tree.pager, *oldCell.Continuation); err != nil {
				return err
			}
		}
		return nil
	}
}

func (c *Cursor) updatePage(idx pager.PageIndex, page node.Page, pathStack []pager.PageIndex) error {
	err := pager.EncodeAndSet(c.tree.pager, idx, page)
	if err == nil {
		return nil
	}
	if !pager.IsNotEnoughSpace(err) {
		return err
	}
	return c.splitPage(idx, page, pathStack)
}

// splitPage halves page (which did not fit at idx), writes both halves —
// the left half reusing idx, the right half at a freshly allocated index —
// and installs the promoted separator into the parent, recursing into
// another split if the parent itself overflows. If pathStack is empty, idx
// was the root and splitting grows the tree by one level.
func (c *Cursor) splitPage(idx pager.PageIndex, page node.Page, pathStack []pager.PageIndex) error {
	var leftPage, rightPage node.Page
	var promoted uint64

	switch {
	case page.IsLeaf():
		left, right, pk := page.Leaf.Split()
		leftPage, rightPage, promoted = node.NewLeafPage(left), node.NewLeafPage(right), pk
	case page.IsInterior():
		left, right, pk := page.Interior.Split()
		leftPage, rightPage, promoted = node.NewInteriorPage(left), node.NewInteriorPage(right), pk
	default:
		return fmt.Errorf("btree: internal error: split requested on an overflow page at %d", idx)
	}

	rightIdx, err := c.tree.pager.Allocate()
	if err != nil {
		return err
	}
	if err := pager.EncodeAndSet(c.tree.pager, idx, leftPage); err != nil {
		return fmt.Errorf("btree: split: left half of page %d still does not fit: %w", idx, err)
	}
	if err := pager.EncodeAndSet(c.tree.pager, rightIdx, rightPage); err != nil {
		return fmt.Errorf("btree: split: right half (new page %d) does not fit: %w", rightIdx, err)
	}

	if len(pathStack) == 0 {
		newRoot := node.NewInteriorPage(node.NewInterior(uint32(idx), promoted, uint32(rightIdx)))
		newRootIdx, err := c.tree.pager.Allocate()
		if err != nil {
			return err
		}
		if err := pager.EncodeAndSet(c.tree.pager, newRootIdx, newRoot); err != nil {
			return fmt.Errorf("btree: split: new root does not fit: %w", err)
		}
		return c.tree.pager.SetRoot(c.treeName, newRootIdx)
	}

	parentIdx := pathStack[len(pathStack)-1]
	parentPathStack := pathStack[:len(pathStack)-1]
	parentPage, err := c.decode(parentIdx)
	if err != nil {
		return err
	}
	parentPage.Interior.InsertChild(promoted, uint32(rightIdx))
	return c.updatePage(parentIdx, parentPage, parentPathStack)
}
