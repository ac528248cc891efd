package node

import (
	"fmt"
	"sort"
)

// Interior holds N separator keys and N+1 child page indices ("edges").
// For each i, every key reachable through edge i is <= separator key i;
// every key reachable through the last edge is > the last separator.
type Interior struct {
	Keys  []uint64 `json:"keys"`
	Edges []uint32 `json:"edges"`
}

// NewInterior builds the initial two-edge, one-key interior created when a
// root split grows the tree by one level.
func NewInterior(leftEdge uint32, rightSmallestKey uint64, rightEdge uint32) *Interior {
	return &Interior{Keys: []uint64{rightSmallestKey}, Edges: []uint32{leftEdge, rightEdge}}
}

// NumEdges returns the number of child edges.
func (in *Interior) NumEdges() int {
	return len(in.Edges)
}

// NumKeys returns the number of separator keys.
func (in *Interior) NumKeys() int {
	return len(in.Keys)
}

// GetChild returns the child page index at edge i.
func (in *Interior) GetChild(i int) uint32 {
	return in.Edges[i]
}

// GetKey returns the separator key at i.
func (in *Interior) GetKey(i int) uint64 {
	return in.Keys[i]
}

// Search selects the edge to descend for key k. When k equals separator i,
// edge i (the left child of that separator) is selected, so equal keys
// remain on the left subtree; otherwise the first edge whose separator is
// greater than k is selected, or the last edge if no separator is.
func (in *Interior) Search(k uint64) (edgeIdx int, childPage uint32) {
	edgeIdx = sort.Search(len(in.Keys), func(i int) bool { return in.Keys[i] >= k })
	return edgeIdx, in.Edges[edgeIdx]
}

// InsertChild inserts a new (separator, edge) pair: the separator is the
// first key of the new edge's subtree, and the new edge is placed
// immediately to the right of that separator.
func (in *Interior) InsertChild(edgeFirstKey uint64, edgePageIdx uint32) {
	pos := sort.Search(len(in.Keys), func(i int) bool { return in.Keys[i] >= edgeFirstKey })

	in.Keys = append(in.Keys, 0)
	copy(in.Keys[pos+1:], in.Keys[pos:])
	in.Keys[pos] = edgeFirstKey

	in.Edges = append(in.Edges, 0)
	copy(in.Edges[pos+2:], in.Edges[pos+1:])
	in.Edges[pos+1] = edgePageIdx
}

// Split splits the interior so the left half keeps ceil(n/2) edges and the
// right half keeps the rest; the key that sat between them is promoted to
// the parent rather than copied into either half.
func (in *Interior) Split() (left, right *Interior, promotedKey uint64) {
	n := len(in.Edges)
	leftEdges := (n + 1) / 2

	promotedKey = in.Keys[leftEdges-1]
	left = &Interior{
		Keys:  append([]uint64(nil), in.Keys[:leftEdges-1]...),
		Edges: append([]uint32(nil), in.Edges[:leftEdges]...),
	}
	right = &Interior{
		Keys:  append([]uint64(nil), in.Keys[leftEdges:]...),
		Edges: append([]uint32(nil), in.Edges[leftEdges:]...),
	}
	return left, right, promotedKey
}

// SmallestKey returns the interior's own first separator key. This is not
// derived recursively from the leftmost child; the interior's own keys
// array is the source of truth used by bound checks during verification.
func (in *Interior) SmallestKey() uint64 {
	return in.Keys[0]
}

// LargestKey returns the interior's own last separator key.
func (in *Interior) LargestKey() uint64 {
	return in.Keys[len(in.Keys)-1]
}

// VerifyOrdering checks that separator keys are non-decreasing.
func (in *Interior) VerifyOrdering() error {
	for i := 1; i < len(in.Keys); i++ {
		if !(in.Keys[i-1] <= in.Keys[i]) {
			return fmt.Errorf("%w: interior keys %d then %d at index %d", ErrKeyOutOfOrder, in.Keys[i-1], in.Keys[i], i)
		}
	}
	return nil
}
