package consensus

import "fmt"

// OpId identifies a log entry by the term that produced it and its index
// within the log. OpIds are totally ordered lexicographically: term first,
// then index.
type OpId struct {
	Term  int64
	Index int64
}

// MinOpId is the sentinel minimum OpId. It compares less than every other
// valid OpId and is used as the "nothing received/committed yet" value.
var MinOpId = OpId{Term: 0, Index: 0}

// Less reports whether o sorts strictly before other.
func (o OpId) Less(other OpId) bool {
	if o.Term != other.Term {
		return o.Term < other.Term
	}
	return o.Index < other.Index
}

// LessOrEqual reports whether o sorts before or equal to other.
func (o OpId) LessOrEqual(other OpId) bool {
	return o == other || o.Less(other)
}

// Compare returns -1, 0, or 1 as o is less than, equal to, or greater than other.
func (o OpId) Compare(other OpId) int {
	switch {
	case o == other:
		return 0
	case o.Less(other):
		return -1
	default:
		return 1
	}
}

// WithIndex returns a copy of o with its index replaced, preserving the term.
func (o OpId) WithIndex(index int64) OpId {
	return OpId{Term: o.Term, Index: index}
}

// Next returns the OpId one index past o, in the same term.
func (o OpId) Next() OpId {
	return OpId{Term: o.Term, Index: o.Index + 1}
}

// IsMin reports whether o is the sentinel minimum OpId.
func (o OpId) IsMin() bool {
	return o == MinOpId
}

func (o OpId) String() string {
	return fmt.Sprintf("%d.%d", o.Term, o.Index)
}

// MaxOpId returns the greater of a and b.
func MaxOpId(a, b OpId) OpId {
	if a.Less(b) {
		return b
	}
	return a
}

// MinOfOpId returns the lesser of a and b.
func MinOfOpId(a, b OpId) OpId {
	if a.Less(b) {
		return a
	}
	return b
}
