package runtime

import (
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

// DataType is the element type of an operand or attribute.
type DataType int

// Supported element types. The engine only computes over float32; anything
// else is rejected while building the graph.
const (
	Unknown DataType = iota
	Float32
)

// String returns a human-readable type name.
func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	default:
		return "unknown"
	}
}

// Operand is a named tensor edge between one producer and its consumers.
// Name is the producing operator's name. Shape is the declared shape with
// the batch size at index 0; Data holds one tensor per batch sample.
//
// An operand is owned by its producer; consumers hold the same Operand in
// their input maps keyed by the producer's name.
type Operand struct {
	Name  string
	Type  DataType
	Shape []int
	Data  []*tensor.Tensor
}

// Batch returns the declared batch size (shape index 0).
func (o *Operand) Batch() int {
	return o.Shape[0]
}
