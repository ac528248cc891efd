package pager

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Pager owns the backing file and is the sole authority over its pages.
// Every Get reads from the file and every Set writes back; this pager adds
// no read cache, matching the reference implementation's read-after-write
// consistency guarantee by construction rather than by invalidation logic.
type Pager struct {
	mu      sync.RWMutex
	file    *os.File
	path    string
	borrows *borrowRegistry
}

// Open attaches to the file at path, creating it if absent. An empty file
// is left empty; it is initialized lazily on the first Allocate.
func Open(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %q: %w", path, err)
	}
	return &Pager{file: f, path: path, borrows: newBorrowRegistry()}, nil
}

// Close flushes and releases the backing file handle.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: sync %q: %w", p.path, err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("pager: close %q: %w", p.path, err)
	}
	return nil
}

// FileSizeInPages returns the number of pages currently in the file.
func (p *Pager) FileSizeInPages() (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pageCountLocked()
}

func (p *Pager) pageCountLocked() (int, error) {
	fi, err := p.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("pager: stat %q: %w", p.path, err)
	}
	if fi.Size()%PageSize != 0 {
		return 0, fmt.Errorf("pager: %q size %d is not a multiple of page size %d", p.path, fi.Size(), PageSize)
	}
	return int(fi.Size() / PageSize), nil
}

// AcquireReadonly registers a readonly cursor's shared borrow. The returned
// release function must be called exactly once when the cursor is done.
func (p *Pager) AcquireReadonly() (release func(), err error) {
	tok, err := p.borrows.acquireShared()
	if err != nil {
		return nil, err
	}
	return func() { p.borrows.release(tok) }, nil
}

// AcquireReadWrite registers a readwrite cursor's exclusive borrow. The
// returned release function must be called exactly once when the cursor is
// done.
func (p *Pager) AcquireReadWrite() (release func(), err error) {
	tok, err := p.borrows.acquireExclusive()
	if err != nil {
		return nil, err
	}
	return func() { p.borrows.release(tok) }, nil
}

// Allocate returns a fresh page index: from the free list if non-empty,
// else by extending the file by one page. An empty file is provisioned
// with page 0 (metadata) and page 1, and page 1 is returned.
func (p *Pager) Allocate() (PageIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	count, err := p.pageCountLocked()
	if err != nil {
		return 0, err
	}

	if count == 0 {
		if err := p.writeRawLocked(MetaPageIndex, zeroPadded(nil)); err != nil {
			return 0, err
		}
		meta := newMetaPage()
		buf, err := meta.encode()
		if err != nil {
			return 0, fmt.Errorf("pager: encode initial metadata: %w", err)
		}
		if err := p.writeRawLocked(MetaPageIndex, zeroPadded(buf)); err != nil {
			return 0, err
		}
		if err := p.writeRawLocked(1, zeroPadded(nil)); err != nil {
			return 0, err
		}
		return 1, nil
	}

	meta, err := p.readMetaLocked()
	if err != nil {
		return 0, err
	}
	if idx, ok := meta.popFree(); ok {
		if err := p.writeMetaLocked(meta); err != nil {
			return 0, err
		}
		return idx, nil
	}

	newIdx := PageIndex(count)
	if err := p.writeRawLocked(newIdx, zeroPadded(nil)); err != nil {
		return 0, err
	}
	return newIdx, nil
}

// Deallocate returns idx to the free list. Deallocating page 0 or a page
// already on the free list is a precondition violation: the specification
// treats this as programmer error and aborts the process.
func (p *Pager) Deallocate(idx PageIndex) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx == MetaPageIndex {
		panic("pager: precondition violation: deallocate(0) is not permitted, page 0 is metadata")
	}

	meta, err := p.readMetaLocked()
	if err != nil {
		return err
	}
	if meta.isFree(idx) {
		panic(fmt.Sprintf("pager: precondition violation: page %d is already on the free list", idx))
	}
	meta.pushFree(idx)
	return p.writeMetaLocked(meta)
}

// GetRaw returns the raw bytes of page idx, always exactly PageSize long.
func (p *Pager) GetRaw(idx PageIndex) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.readRawLocked(idx)
}

// SetRaw overwrites page idx with buf, which must be at most PageSize bytes;
// it is zero-padded to PageSize before being written.
func (p *Pager) SetRaw(idx PageIndex, buf []byte) error {
	if len(buf) > PageSize {
		return &NotEnoughSpaceInPage{PageIndex: idx, EncodedSize: len(buf)}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeRawLocked(idx, zeroPadded(buf))
}

// GetAndDecode reads page idx and JSON-decodes it into T.
func GetAndDecode[T any](p *Pager, idx PageIndex) (T, error) {
	var zero T
	raw, err := p.GetRaw(idx)
	if err != nil {
		return zero, err
	}
	trimmed := trimTrailingZeros(raw)
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return zero, fmt.Errorf("pager: decode page %d: %w", idx, err)
	}
	return v, nil
}

// EncodeAndSet JSON-encodes v and writes it to page idx. It returns a
// *NotEnoughSpaceInPage error, and performs no write, if the encoded form
// exceeds PageSize bytes.
func EncodeAndSet[T any](p *Pager, idx PageIndex, v T) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("pager: encode page %d: %w", idx, err)
	}
	if len(buf) > PageSize {
		return &NotEnoughSpaceInPage{PageIndex: idx, EncodedSize: len(buf)}
	}
	return p.SetRaw(idx, buf)
}

// GetRoot returns the root page index registered for name, if any.
func (p *Pager) GetRoot(name string) (PageIndex, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	meta, err := p.readMetaLocked()
	if err != nil {
		return 0, false, err
	}
	idx, ok := meta.RootPages[name]
	return idx, ok, nil
}

// SetRoot registers idx as the root page for name, overwriting any prior
// registration.
func (p *Pager) SetRoot(name string, idx PageIndex) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	meta, err := p.readMetaLocked()
	if err != nil {
		return err
	}
	meta.RootPages[name] = idx
	return p.writeMetaLocked(meta)
}

// ListTreeNames returns every registered tree name, sorted for determinism.
func (p *Pager) ListTreeNames() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	meta, err := p.readMetaLocked()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(meta.RootPages))
	for name := range meta.RootPages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (p *Pager) readMetaLocked() (*metaPage, error) {
	raw, err := p.readRawLocked(MetaPageIndex)
	if err != nil {
		return nil, err
	}
	return decodeMetaPage(trimTrailingZeros(raw))
}

func (p *Pager) writeMetaLocked(meta *metaPage) error {
	buf, err := meta.encode()
	if err != nil {
		return fmt.Errorf("pager: encode metadata: %w", err)
	}
	if len(buf) > PageSize {
		return &NotEnoughSpaceInPage{PageIndex: MetaPageIndex, EncodedSize: len(buf)}
	}
	return p.writeRawLocked(MetaPageIndex, zeroPadded(buf))
}

func (p *Pager) readRawLocked(idx PageIndex) ([]byte, error) {
	buf := make([]byte, PageSize)
	off := int64(idx) * PageSize
	n, err := p.file.ReadAt(buf, off)
	if err != nil && n != PageSize {
		return nil, fmt.Errorf("pager: read page %d: %w", idx, err)
	}
	return buf, nil
}

func (p *Pager) writeRawLocked(idx PageIndex, buf []byte) error {
	if len(buf) != PageSize {
		panic("pager: internal error: write buffer is not exactly one page")
	}
	off := int64(idx) * PageSize
	if _, err := p.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("pager: write page %d: %w", idx, err)
	}
	return nil
}

func zeroPadded(buf []byte) []byte {
	out := make([]byte, PageSize)
	copy(out, buf)
	return out
}

func trimTrailingZeros(buf []byte) []byte {
	i := len(buf)
	for i > 0 && buf[i-1] == 0 {
		i--
	}
	return buf[:i]
}
