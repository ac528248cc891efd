package node

import "errors"

// ErrKeyOutOfOrder is a StructuralInvariantViolation: a leaf's keys are not
// strictly ascending, or an interior's separators are not non-decreasing.
// It is surfaced only by verification and is never auto-repaired.
var ErrKeyOutOfOrder = errors.New("key out of order")
