package node

import (
	"bytes"
	"encoding/json"
)

// minLeafFanoutForThreshold is the number of maximal-size cells a full leaf
// should still be able to hold. Sizing the cutoff off a target fanout,
// rather than a fixed byte count, is what lets ChunkThreshold answer "what
// inline size keeps a leaf comfortably splittable" for any page size.
const minLeafFanoutForThreshold = 32

// ChunkThreshold computes the oversize cutoff T_c: the largest inline
// value size for which a full leaf of minLeafFanoutForThreshold such cells
// still fits within a page of pageSize bytes. Values longer than the
// result are split into an inline head and an overflow chain (see
// ChunkThreshold's caller in the btree package) so that a leaf's encoded
// size stays bounded regardless of how large individual values get.
//
// This is computed from pageSize and the node codec's actual encoding
// overhead (via json.Marshal) rather than hard-coded, because the
// overhead depends on the encoding (JSON base64-encodes []byte, unlike a
// bit-packed binary layout) and would silently go stale if the codec
// changed shape.
func ChunkThreshold(pageSize int) int {
	lo, hi := 1, pageSize
	best := 1
	for lo <= hi {
		mid := (lo + hi) / 2
		if leafOfCellsFits(pageSize, minLeafFanoutForThreshold, mid) {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

func leafOfCellsFits(pageSize, count, valueSize int) bool {
	cells := make([]Cell, count)
	for i := range cells {
		cells[i] = Cell{Key: uint64(i), Value: bytes.Repeat([]byte{'x'}, valueSize)}
	}
	buf, err := json.Marshal(NewLeafPage(&Leaf{Cells: cells}))
	if err != nil {
		return false
	}
	return len(buf) <= pageSize
}

// OverflowChunkSize computes the overflow writer's chunk size C_o: the
// largest raw byte count that still fits, alongside a populated Next
// pointer, inside a single overflow page of pageSize bytes.
func OverflowChunkSize(pageSize int) int {
	lo, hi := 1, pageSize
	best := 1
	next := uint32(1)
	for lo <= hi {
		mid := (lo + hi) / 2
		o := Overflow{Data: bytes.Repeat([]byte{'x'}, mid), Next: &next}
		buf, err := json.Marshal(NewOverflowPage(&o))
		if err == nil && len(buf) <= pageSize {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}
