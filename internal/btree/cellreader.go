package btree

import (
	"fmt"
	"io"

	"github.com/dbcore/pagestore/internal/node"
	"github.com/dbcore/pagestore/internal/pager"
)

// CellReader is a lazy byte source over one cell's value: it reads the
// inline head first, then transparently walks the cell's overflow chain
// (if any) through the pager. It implements io.Reader.
type CellReader struct {
	pager        *pager.Pager
	key          uint64
	buf          []byte
	continuation *uint32
}

func newCellReader(p *pager.Pager, cell node.Cell) *CellReader {
	return &CellReader{pager: p, key: cell.Key, buf: cell.Value, continuation: cell.Continuation}
}

// Key returns the cell's key.
func (r *CellReader) Key() uint64 {
	return r.key
}

// Read implements io.Reader. It drains the current buffer; once empty, if
// a continuation is set, it loads the next overflow page, installs its
// bytes as the current buffer and its own next pointer as the new
// continuation, and tries again. End-of-stream is reached only when the
// buffer is empty and no continuation remains.
func (r *CellReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.continuation == nil {
			return 0, io.EOF
		}
		page, err := pager.GetAndDecode[node.Page](r.pager, pager.PageIndex(*r.continuation))
		if err != nil {
			return 0, err
		}
		if !page.IsOverflow() {
			return 0, fmt.Errorf("btree: cell reader: expected overflow page at %d, got %s", *r.continuation, page.Kind)
		}
		r.buf = page.Overflow.Data
		r.continuation = page.Overflow.Next
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
