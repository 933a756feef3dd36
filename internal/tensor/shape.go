package tensor

import "fmt"

// Shape holds tensor dimensions, outermost first.
type Shape []int

// NumElements returns the element count the shape describes. An empty
// shape is a scalar and counts as one element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate rejects shapes with zero or negative dimensions.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 1 {
			return fmt.Errorf("dimension %d of shape %v is %d, want a positive size", i, s, dim)
		}
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i, dim := range s {
		if dim != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Shape) Clone() Shape {
	return append(Shape(nil), s...)
}
