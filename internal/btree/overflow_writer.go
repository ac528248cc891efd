package btree

import (
	"fmt"

	"github.com/dbcore/pagestore/internal/node"
	"github.com/dbcore/pagestore/internal/pager"
)

// writeOverflowChain chops tail into chunkSize-byte pieces and writes them
// as a singly linked chain of overflow pages, returning the first page's
// index. The chain is unidirectional and immutable once written.
func writeOverflowChain(p *pager.Pager, tail []byte, chunkSize int) (pager.PageIndex, error) {
	if len(tail) == 0 {
		panic("btree: internal error: writeOverflowChain requires a non-empty tail")
	}

	first, err := p.Allocate()
	if err != nil {
		return 0, err
	}

	cur := first
	remaining := tail
	for {
		if len(remaining) > chunkSize {
			next, err := p.Allocate()
			if err != nil {
				return 0, err
			}
			nextIdx := uint32(next)
			chunk := append([]byte(nil), remaining[:chunkSize]...)
			page := node.NewOverflowPage(&node.Overflow{Data: chunk, Next: &nextIdx})
			if err := pager.EncodeAndSet(p, cur, page); err != nil {
				return 0, fmt.Errorf("btree: overflow writer: page %d: %w", cur, err)
			}
			cur = next
			remaining = remaining[chunkSize:]
			continue
		}

		page := node.NewOverflowPage(&node.Overflow{Data: append([]byte(nil), remaining...)})
		if err := pager.EncodeAndSet(p, cur, page); err != nil {
			return 0, fmt.Errorf("btree: overflow writer: final page %d: %w", cur, err)
		}
		return first, nil
	}
}

// freeOverflowChain walks the chain starting at start and deallocates
// every page in it. It is used to reclaim a cell's prior overflow chain
// when Insert replaces that cell (see Cursor.Insert).
func freeOverflowChain(p *pager.Pager, start uint32) error {
	cur := pager.PageIndex(start)
	for {
		page, err := pager.GetAndDecode[node.Page](p, cur)
		if err != nil {
			return err
		}
		if !page.IsOverflow() {
			return fmt.Errorf("btree: expected overflow page at %d, got %s", cur, page.Kind)
		}
		next := page.Overflow.Next
		if err := p.Deallocate(cur); err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		cur = pager.PageIndex(*next)
	}
}
