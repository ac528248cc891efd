// Package pager maps a flat file into fixed-size pages and allocates and
// frees them through an in-file free list and a per-file metadata page.
package pager

import "fmt"

// PageSize is the fixed size of every page in the backing file, in bytes.
// Page 0 (metadata) and every node/overflow page are exactly this size.
const PageSize = 4096

// PageIndex identifies a page within the file. 0 is reserved for metadata
// and is never returned by Allocate and never accepted by Deallocate.
type PageIndex uint32

// MetaPageIndex is the reserved index of the metadata page.
const MetaPageIndex PageIndex = 0

// NotEnoughSpaceInPage is returned by EncodeAndSet when the serialized
// representation of a value exceeds PageSize. It is the only recoverable
// error produced by the storage core; callers recover by splitting.
type NotEnoughSpaceInPage struct {
	PageIndex   PageIndex
	EncodedSize int
}

func (e *NotEnoughSpaceInPage) Error() string {
	return fmt.Sprintf("pager: page %d: encoded size %d exceeds page size %d", e.PageIndex, e.EncodedSize, PageSize)
}

// IsNotEnoughSpace reports whether err is (or wraps) a NotEnoughSpaceInPage.
func IsNotEnoughSpace(err error) bool {
	var nes *NotEnoughSpaceInPage
	return asNotEnoughSpace(err, &nes)
}

func asNotEnoughSpace(err error, target **NotEnoughSpaceInPage) bool {
	for err != nil {
		if nes, ok := err.(*NotEnoughSpaceInPage); ok {
			*target = nes
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
