package node

import (
	"encoding/json"
	"fmt"
)

// Cell is the unit stored inside a leaf node: a key, an inline byte slice
// (a prefix of the value, or the whole value if Continuation is absent),
// and the page index of the first overflow page holding the remainder.
type Cell struct {
	Key          uint64
	Value        []byte
	Continuation *uint32
}

// NewCell builds a cell with no continuation; callers that split an
// oversize value set Continuation afterward.
func NewCell(key uint64, value []byte) Cell {
	return Cell{Key: key, Value: value}
}

// HasContinuation reports whether the cell's value tail overflows onto a
// chain of overflow pages.
func (c Cell) HasContinuation() bool {
	return c.Continuation != nil
}

// MarshalJSON encodes a cell as a two-element array ([key, value]) when it
// has no continuation, or a three-element array ([key, value, continuation])
// when it does. Omitting the field entirely rather than encoding a null
// trims a few bytes from every cell, which matters because this size is
// exactly what drives the split/overflow decisions in the node codec.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Continuation != nil {
		return json.Marshal([3]interface{}{c.Key, c.Value, *c.Continuation})
	}
	return json.Marshal([2]interface{}{c.Key, c.Value})
}

// UnmarshalJSON accepts either the two- or three-element array form
// produced by MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("node: cell: %w", err)
	}
	if len(raw) != 2 && len(raw) != 3 {
		return fmt.Errorf("node: cell: expected 2 or 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &c.Key); err != nil {
		return fmt.Errorf("node: cell: key: %w", err)
	}
	c.Value = nil
	if err := json.Unmarshal(raw[1], &c.Value); err != nil {
		return fmt.Errorf("node: cell: value: %w", err)
	}
	if len(raw) == 3 {
		var cont uint32
		if err := json.Unmarshal(raw[2], &cont); err != nil {
			return fmt.Errorf("node: cell: continuation: %w", err)
		}
		c.Continuation = &cont
	} else {
		c.Continuation = nil
	}
	return nil
}
