// Package btree implements the storage core's B+-tree: named-tree
// creation, cursor handles that search, insert and iterate, and whole-file
// structural verification, all built on top of the pager and node codec.
package btree

import (
	"fmt"

	"github.com/dbcore/pagestore/internal/node"
	"github.com/dbcore/pagestore/internal/pager"
)

// BTree attaches the node/cursor layer to a single backing file. It holds
// no cache of its own; every operation reads the pager fresh.
type BTree struct {
	pager             *pager.Pager
	chunkThreshold    int
	overflowChunkSize int
}

// Open attaches to the file at path, creating it if absent.
func Open(path string) (*BTree, error) {
	p, err := pager.Open(path)
	if err != nil {
		return nil, err
	}
	return &BTree{
		pager:             p,
		chunkThreshold:    node.ChunkThreshold(pager.PageSize),
		overflowChunkSize: node.OverflowChunkSize(pager.PageSize),
	}, nil
}

// Close releases the backing file.
func (t *BTree) Close() error {
	return t.pager.Close()
}

// ChunkThreshold returns the oversize cutoff T_c: values no longer than
// this stay inline in their cell; longer values spill into an overflow
// chain.
func (t *BTree) ChunkThreshold() int {
	return t.chunkThreshold
}

// CreateTree registers a new, empty tree under name. It is a precondition
// violation — programmer error, and this aborts the process rather than
// returning an error — to create a tree under a name that already has a
// root registered.
func (t *BTree) CreateTree(name string) error {
	if _, ok, err := t.pager.GetRoot(name); err != nil {
		return err
	} else if ok {
		panic(fmt.Sprintf("btree: precondition violation: tree %q already exists", name))
	}

	idx, err := t.pager.Allocate()
	if err != nil {
		return err
	}
	empty := node.NewLeafPage(&node.Leaf{})
	if err := pager.EncodeAndSet(t.pager, idx, empty); err != nil {
		return fmt.Errorf("btree: create tree %q: %w", name, err)
	}
	return t.pager.SetRoot(name, idx)
}

// ListTreeNames returns every registered tree name.
func (t *BTree) ListTreeNames() ([]string, error) {
	return t.pager.ListTreeNames()
}

// OpenCursorReadonly returns a cursor holding a shared borrow on the
// pager (see internal/pager's borrow discipline), or ok=false if name has
// no registered root. Close must be called when the cursor is no longer
// needed.
func (t *BTree) OpenCursorReadonly(name string) (cur *Cursor, ok bool, err error) {
	if _, ok, err := t.pager.GetRoot(name); err != nil {
		return nil, false, err
	} else if !ok {
		return nil, false, nil
	}
	release, err := t.pager.AcquireReadonly()
	if err != nil {
		return nil, false, err
	}
	return &Cursor{tree: t, treeName: name, release: release, readWrite: false}, true, nil
}

// OpenCursorReadWrite returns a cursor holding the pager's exclusive
// borrow, or ok=false if name has no registered root. Close must be
// called when the cursor is no longer needed.
func (t *BTree) OpenCursorReadWrite(name string) (cur *Cursor, ok bool, err error) {
	if _, ok, err := t.pager.GetRoot(name); err != nil {
		return nil, false, err
	} else if !ok {
		return nil, false, nil
	}
	release, err := t.pager.AcquireReadWrite()
	if err != nil {
		return nil, false, err
	}
	return &Cursor{tree: t, treeName: name, release: release, readWrite: true}, true, nil
}
