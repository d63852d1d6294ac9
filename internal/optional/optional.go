// Package optional provides a total ordering over nullable ordered scalars.
//
// A Value is either present (Some) or absent (None). Comparator decides where
// absent values rank relative to present ones; by default absent ranks
// greater than any present value, so sorting ascending puts absent values last.
//
// For any pair (a, b) exactly one of Less, Equal, Greater holds, and
// LessOrEqual/GreaterOrEqual are derived from them.
package optional

import "cmp"

// Value is a nullable scalar.
type Value[T cmp.Ordered] struct {
	v     T
	valid bool
}

// Some returns a present value.
func Some[T cmp.Ordered](v T) Value[T] {
	return Value[T]{v: v, valid: true}
}

// None returns an absent value.
func None[T cmp.Ordered]() Value[T] {
	return Value[T]{}
}

// FromPtr converts a pointer into a Value; nil becomes None.
func FromPtr[T cmp.Ordered](p *T) Value[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// Get returns the value and whether it is present.
func (o Value[T]) Get() (T, bool) {
	return o.v, o.valid
}

// Present reports whether the value is set.
func (o Value[T]) Present() bool {
	return o.valid
}

// Comparator orders Values.
//
// The zero Comparator ranks absent values greater than present ones.
// Set AbsentFirst to rank them lower instead.
type Comparator[T cmp.Ordered] struct {
	AbsentFirst bool
}

// Compare returns -1, 0 or +1.
// Two absent values compare equal.
func (c Comparator[T]) Compare(a, b Value[T]) int {
	switch {
	case a.valid && b.valid:
		return cmp.Compare(a.v, b.v)
	case !a.valid && !b.valid:
		return 0
	case !a.valid:
		if c.AbsentFirst {
			return -1
		}
		return 1
	default:
		if c.AbsentFirst {
			return 1
		}
		return -1
	}
}

// Less reports a < b.
func (c Comparator[T]) Less(a, b Value[T]) bool {
	return c.Compare(a, b) < 0
}

// LessOrEqual reports a <= b.
func (c Comparator[T]) LessOrEqual(a, b Value[T]) bool {
	return c.Compare(a, b) <= 0
}

// Greater reports a > b.
func (c Comparator[T]) Greater(a, b Value[T]) bool {
	return c.Compare(a, b) > 0
}

// GreaterOrEqual reports a >= b.
func (c Comparator[T]) GreaterOrEqual(a, b Value[T]) bool {
	return c.Compare(a, b) >= 0
}

// Equal reports a == b. Two absent values are equal.
func (c Comparator[T]) Equal(a, b Value[T]) bool {
	return c.Compare(a, b) == 0
}

// NotEqual reports a != b.
func (c Comparator[T]) NotEqual(a, b Value[T]) bool {
	return c.Compare(a, b) != 0
}
