package node

import "fmt"

// Kind discriminates the three page variants stored in the file.
type Kind string

const (
	KindLeaf     Kind = "leaf"
	KindInterior Kind = "interior"
	KindOverflow Kind = "overflow"
)

// Page is the single on-page union type that discriminates between Leaf,
// Interior, and Overflow. Exactly one of the pointer fields is populated,
// matching Kind; the Go JSON encoding of a struct with omitempty pointers
// is already a self-describing tagged union, so no custom codec is needed
// here the way Cell needs one.
type Page struct {
	Kind     Kind      `json:"kind"`
	Leaf     *Leaf     `json:"leaf,omitempty"`
	Interior *Interior `json:"interior,omitempty"`
	Overflow *Overflow `json:"overflow,omitempty"`
}

// NewLeafPage wraps a leaf in the page union.
func NewLeafPage(l *Leaf) Page {
	return Page{Kind: KindLeaf, Leaf: l}
}

// NewInteriorPage wraps an interior in the page union.
func NewInteriorPage(in *Interior) Page {
	return Page{Kind: KindInterior, Interior: in}
}

// NewOverflowPage wraps an overflow chunk in the page union.
func NewOverflowPage(o *Overflow) Page {
	return Page{Kind: KindOverflow, Overflow: o}
}

// IsLeaf reports whether the page holds a leaf.
func (p Page) IsLeaf() bool { return p.Kind == KindLeaf }

// IsInterior reports whether the page holds an interior node.
func (p Page) IsInterior() bool { return p.Kind == KindInterior }

// IsOverflow reports whether the page holds an overflow chunk.
func (p Page) IsOverflow() bool { return p.Kind == KindOverflow }

// SmallestKey dispatches to the variant's own smallest key. Panics if the
// page is an overflow page, which has no keys.
func (p Page) SmallestKey() uint64 {
	switch p.Kind {
	case KindLeaf:
		return p.Leaf.SmallestKey()
	case KindInterior:
		return p.Interior.SmallestKey()
	default:
		panic(fmt.Sprintf("node: SmallestKey on %s page", p.Kind))
	}
}

// LargestKey dispatches to the variant's own largest key. Panics if the
// page is an overflow page, which has no keys.
func (p Page) LargestKey() uint64 {
	switch p.Kind {
	case KindLeaf:
		return p.Leaf.LargestKey()
	case KindInterior:
		return p.Interior.LargestKey()
	default:
		panic(fmt.Sprintf("node: LargestKey on %s page", p.Kind))
	}
}

// VerifyOrdering dispatches to the variant's own ordering check. Overflow
// pages have no ordering constraint and always pass.
func (p Page) VerifyOrdering() error {
	switch p.Kind {
	case KindLeaf:
		return p.Leaf.VerifyOrdering()
	case KindInterior:
		return p.Interior.VerifyOrdering()
	default:
		return nil
	}
}
