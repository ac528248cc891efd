package pager

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// BorrowToken identifies one cursor's hold on the pager's shared-resource
// discipline (§5: readonly cursors share, a readwrite cursor excludes
// everyone else). Go has no borrow checker, so the discipline is enforced
// at runtime by borrowRegistry and audited by token so a stuck cursor can
// be traced back to whoever acquired it.
type BorrowToken uuid.UUID

func newBorrowToken() BorrowToken {
	return BorrowToken(uuid.New())
}

func (t BorrowToken) String() string {
	return uuid.UUID(t).String()
}

// borrowRegistry enforces "many readers xor one writer" over the pager's
// backing file. It does not itself guard page contents — Pager's mutex
// does that — it guards the higher-level invariant that no readwrite
// cursor runs while any other cursor, reader or writer, is outstanding.
type borrowRegistry struct {
	mu        sync.Mutex
	readers   map[BorrowToken]struct{}
	writer    *BorrowToken
}

func newBorrowRegistry() *borrowRegistry {
	return &borrowRegistry{readers: make(map[BorrowToken]struct{})}
}

// acquireShared registers a readonly borrow. It fails if a writer currently
// holds the file exclusively.
func (r *borrowRegistry) acquireShared() (BorrowToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer != nil {
		return BorrowToken{}, fmt.Errorf("pager: cannot open readonly cursor: readwrite cursor %s holds exclusive access", r.writer)
	}
	tok := newBorrowToken()
	r.readers[tok] = struct{}{}
	return tok, nil
}

// acquireExclusive registers a readwrite borrow. It fails if any cursor,
// reader or writer, is currently outstanding.
func (r *borrowRegistry) acquireExclusive() (BorrowToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer != nil {
		return BorrowToken{}, fmt.Errorf("pager: cannot open readwrite cursor: readwrite cursor %s already holds exclusive access", r.writer)
	}
	if len(r.readers) > 0 {
		return BorrowToken{}, fmt.Errorf("pager: cannot open readwrite cursor: %d readonly cursor(s) outstanding", len(r.readers))
	}
	tok := newBorrowToken()
	r.writer = &tok
	return tok, nil
}

func (r *borrowRegistry) release(tok BorrowToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer != nil && *r.writer == tok {
		r.writer = nil
		return
	}
	delete(r.readers, tok)
}
