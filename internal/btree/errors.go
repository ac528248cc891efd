package btree

import (
	"errors"

	"github.com/dbcore/pagestore/internal/node"
)

// ErrKeyOutOfOrder is surfaced by Verify when a leaf's keys are not
// strictly ascending or an interior's separators are not non-decreasing.
var ErrKeyOutOfOrder = node.ErrKeyOutOfOrder

// ErrImbalance is surfaced by Verify when the tree's structural invariants
// are violated in a way that is not simply out-of-order keys: leaves at
// unequal depth, an interior with too few edges, a separator/edge count
// mismatch, a child whose key range escapes its separator's bound, or
// (a condition that should never arise from normal splits, but is checked
// defensively) a non-root leaf with no cells.
var ErrImbalance = errors.New("imbalance")

// ErrUnknownTree is returned when an operation names a tree that has no
// registered root.
var ErrUnknownTree = errors.New("unknown tree")
