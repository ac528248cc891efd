package pager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openTemp(t *testing.T) *Pager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestAllocateProvisionsMetaPageOnEmptyFile(t *testing.T) {
	p := openTemp(t)

	idx, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if idx != 1 {
		t.Fatalf("first Allocate() = %d, want 1", idx)
	}

	count, err := p.FileSizeInPages()
	if err != nil {
		t.Fatalf("FileSizeInPages: %v", err)
	}
	if count != 2 {
		t.Fatalf("FileSizeInPages() = %d, want 2", count)
	}
}

func TestRawReadAfterWrite(t *testing.T) {
	p := openTemp(t)

	idx, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	payload := []byte("hello, page")
	if err := p.SetRaw(idx, payload); err != nil {
		t.Fatalf("SetRaw: %v", err)
	}

	got, err := p.GetRaw(idx)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if !strings.HasPrefix(string(got), string(payload)) {
		t.Fatalf("GetRaw() = %q, want prefix %q", got, payload)
	}
}

func TestGetAndDecodeRoundTrip(t *testing.T) {
	p := openTemp(t)
	idx, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	type payload struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}
	want := payload{Name: "leaf", N: 42}

	if err := EncodeAndSet(p, idx, want); err != nil {
		t.Fatalf("EncodeAndSet: %v", err)
	}
	got, err := GetAndDecode[payload](p, idx)
	if err != nil {
		t.Fatalf("GetAndDecode: %v", err)
	}
	if got != want {
		t.Fatalf("GetAndDecode() = %+v, want %+v", got, want)
	}
}

func TestEncodeAndSetSignalsNotEnoughSpace(t *testing.T) {
	p := openTemp(t)
	idx, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	big := make([]byte, PageSize*2)
	for i := range big {
		big[i] = 'x'
	}
	err = EncodeAndSet(p, idx, string(big))
	if err == nil {
		t.Fatalf("EncodeAndSet() with oversized value: want error, got nil")
	}
	if !IsNotEnoughSpace(err) {
		t.Fatalf("EncodeAndSet() error = %v, want NotEnoughSpaceInPage", err)
	}
}

func TestFreeListAllocateAfterDeallocateDoesNotGrowFile(t *testing.T) {
	p := openTemp(t)

	const n = 8
	indices := make([]PageIndex, 0, n)
	for i := 0; i < n; i++ {
		idx, err := p.Allocate()
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		indices = append(indices, idx)
	}

	for _, idx := range indices {
		if err := p.Deallocate(idx); err != nil {
			t.Fatalf("Deallocate(%d): %v", idx, err)
		}
	}

	before, err := p.FileSizeInPages()
	if err != nil {
		t.Fatalf("FileSizeInPages: %v", err)
	}

	for i := 0; i < n; i++ {
		if _, err := p.Allocate(); err != nil {
			t.Fatalf("Allocate: %v", err)
		}
	}

	after, err := p.FileSizeInPages()
	if err != nil {
		t.Fatalf("FileSizeInPages: %v", err)
	}
	if before != after {
		t.Fatalf("file grew across reuse cycle: before=%d after=%d", before, after)
	}
}

func TestDeallocateZeroPanics(t *testing.T) {
	p := openTemp(t)
	if _, err := p.Allocate(); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("Deallocate(0): want panic, got none")
		}
	}()
	_ = p.Deallocate(MetaPageIndex)
}

func TestDeallocateAlreadyFreePanics(t *testing.T) {
	p := openTemp(t)
	idx, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := p.Deallocate(idx); err != nil {
		t.Fatalf("Deallocate: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("double Deallocate: want panic, got none")
		}
	}()
	_ = p.Deallocate(idx)
}

func TestRootRegistrationAndListing(t *testing.T) {
	p := openTemp(t)
	idxA, _ := p.Allocate()
	idxB, _ := p.Allocate()

	if err := p.SetRoot("alpha", idxA); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	if err := p.SetRoot("beta", idxB); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	got, ok, err := p.GetRoot("alpha")
	if err != nil || !ok || got != idxA {
		t.Fatalf("GetRoot(alpha) = (%d, %v, %v), want (%d, true, nil)", got, ok, err, idxA)
	}

	if _, ok, _ := p.GetRoot("missing"); ok {
		t.Fatalf("GetRoot(missing) = ok, want not-ok")
	}

	names, err := p.ListTreeNames()
	if err != nil {
		t.Fatalf("ListTreeNames: %v", err)
	}
	want := []string{"alpha", "beta"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("ListTreeNames() = %v, want %v", names, want)
	}
}

func TestBorrowDisciplineExcludesWriterFromReaders(t *testing.T) {
	p := openTemp(t)

	releaseReader, err := p.AcquireReadonly()
	if err != nil {
		t.Fatalf("AcquireReadonly: %v", err)
	}
	if _, err := p.AcquireReadWrite(); err == nil {
		t.Fatalf("AcquireReadWrite with outstanding reader: want error, got nil")
	}
	releaseReader()

	releaseWriter, err := p.AcquireReadWrite()
	if err != nil {
		t.Fatalf("AcquireReadWrite: %v", err)
	}
	if _, err := p.AcquireReadonly(); err == nil {
		t.Fatalf("AcquireReadonly with outstanding writer: want error, got nil")
	}
	releaseWriter()

	releaseA, err := p.AcquireReadonly()
	if err != nil {
		t.Fatalf("AcquireReadonly: %v", err)
	}
	releaseB, err := p.AcquireReadonly()
	if err != nil {
		t.Fatalf("second AcquireReadonly: %v", err)
	}
	releaseA()
	releaseB()
}

func TestReopenPreservesState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")

	p1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx, err := p1.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := p1.SetRoot("t", idx); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	if err := p1.SetRaw(idx, []byte("payload")); err != nil {
		t.Fatalf("SetRaw: %v", err)
	}
	if err := p1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer p2.Close()

	got, ok, err := p2.GetRoot("t")
	if err != nil || !ok || got != idx {
		t.Fatalf("GetRoot after reopen = (%d, %v, %v), want (%d, true, nil)", got, ok, err, idx)
	}
	raw, err := p2.GetRaw(idx)
	if err != nil {
		t.Fatalf("GetRaw after reopen: %v", err)
	}
	if !strings.HasPrefix(string(raw), "payload") {
		t.Fatalf("GetRaw after reopen = %q, want prefix %q", raw, "payload")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Stat: %v", err)
	}
}
