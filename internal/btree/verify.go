package btree

import (
	"fmt"

	"github.com/dbcore/pagestore/internal/node"
	"github.com/dbcore/pagestore/internal/pager"
)

// Verify checks name's structural invariants: leaf ordering (strict),
// interior ordering (non-decreasing), per-edge key bounds, and that every
// leaf sits at the same depth. It returns ErrKeyOutOfOrder or ErrImbalance
// (possibly wrapped) on failure; structural corruption is never repaired.
//
// A root that is itself a leaf only has its key ordering checked: the
// "non-root leaves must be non-empty" check below does not apply to it,
// since an empty root-leaf tree (the state every freshly created tree
// starts in) is a valid, ordinary state, not corruption.
func (t *BTree) Verify(name string) error {
	rootIdx, ok, err := t.pager.GetRoot(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTree, name)
	}

	rootPage, err := pager.GetAndDecode[node.Page](t.pager, rootIdx)
	if err != nil {
		return err
	}

	switch {
	case rootPage.IsLeaf():
		return rootPage.Leaf.VerifyOrdering()
	case rootPage.IsInterior():
		_, err := verifyInterior(t.pager, rootPage.Interior)
		return err
	default:
		return fmt.Errorf("btree: internal error: tree %q root is an overflow page", name)
	}
}

// VerifyAll runs Verify against every registered tree.
func (t *BTree) VerifyAll() error {
	names, err := t.pager.ListTreeNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := t.Verify(name); err != nil {
			return fmt.Errorf("tree %q: %w", name, err)
		}
	}
	return nil
}

func verifyLeaf(leaf *node.Leaf, isRoot bool) (level int, err error) {
	if !isRoot && leaf.NumItems() == 0 {
		return 0, fmt.Errorf("%w: non-root leaf has no cells", ErrImbalance)
	}
	if err := leaf.VerifyOrdering(); err != nil {
		return 0, err
	}
	return 0, nil
}

func verifyInterior(p *pager.Pager, interior *node.Interior) (level int, err error) {
	if err := interior.VerifyOrdering(); err != nil {
		return 0, err
	}
	if interior.NumEdges() <= 1 {
		return 0, fmt.Errorf("%w: interior has %d edge(s), want at least 2", ErrImbalance, interior.NumEdges())
	}
	if interior.NumEdges()-1 != interior.NumKeys() {
		return 0, fmt.Errorf("%w: interior has %d edges and %d keys", ErrImbalance, interior.NumEdges(), interior.NumKeys())
	}

	for edge := 0; edge < interior.NumEdges()-1; edge++ {
		childIdx := interior.GetChild(edge)
		childPage, err := pager.GetAndDecode[node.Page](p, pager.PageIndex(childIdx))
		if err != nil {
			return 0, err
		}
		edgeKey := interior.GetKey(edge)
		smallest, largest := childPage.SmallestKey(), childPage.LargestKey()
		if !(smallest <= largest) {
			return 0, fmt.Errorf("%w: child page %d smallest key %d exceeds its largest key %d", ErrImbalance, childIdx, smallest, largest)
		}
		if !(largest <= edgeKey) {
			return 0, fmt.Errorf("%w: child page %d largest key %d exceeds separator %d", ErrImbalance, childIdx, largest, edgeKey)
		}
	}

	levels := make([]int, interior.NumEdges())
	for edge := 0; edge < interior.NumEdges(); edge++ {
		childIdx := interior.GetChild(edge)
		childPage, err := pager.GetAndDecode[node.Page](p, pager.PageIndex(childIdx))
		if err != nil {
			return 0, err
		}
		lvl, err := verifyNode(p, childPage)
		if err != nil {
			return 0, err
		}
		levels[edge] = lvl
	}
	first := levels[0]
	for _, lvl := range levels[1:] {
		if lvl != first {
			return 0, fmt.Errorf("%w: leaves are not all at the same depth", ErrImbalance)
		}
	}
	return first + 1, nil
}

func verifyNode(p *pager.Pager, page node.Page) (level int, err error) {
	switch {
	case page.IsLeaf():
		return verifyLeaf(page.Leaf, false)
	case page.IsInterior():
		return verifyInterior(p, page.Interior)
	default:
		return 0, fmt.Errorf("btree: internal error: verify encountered an overflow page where a node was expected")
	}
}
