package layers

import (
	"fmt"

	"github.com/kestrel-ml/kestrel/internal/runtime"
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

func init() {
	runtime.RegisterLayer("nn.Add", func(op *runtime.Operator) (runtime.Layer, error) {
		return &Add{}, nil
	})
}

// Add sums two input operands element-wise. The flattened input list holds
// the first operand's batch followed by the second's, so it must be exactly
// twice the output batch.
type Add struct{}

// Name returns the layer name.
func (a *Add) Name() string { return "Add" }

// Forward computes out[i] = lhs[i] + rhs[i] per sample.
func (a *Add) Forward(inputs, outputs []*tensor.Tensor) error {
	if len(outputs) == 0 {
		return fmt.Errorf("add: output tensors are empty")
	}
	if len(inputs) != 2*len(outputs) {
		return fmt.Errorf("add: want two operands of %d samples each, got %d input tensors",
			len(outputs), len(inputs))
	}
	batch := len(outputs)
	for i := 0; i < batch; i++ {
		lhs := inputs[i].Data()
		rhs := inputs[batch+i].Data()
		dst := outputs[i].Data()
		if len(lhs) != len(dst) || len(rhs) != len(dst) {
			return fmt.Errorf("add: sample %d: element counts differ (%d, %d, out %d)",
				i, len(lhs), len(rhs), len(dst))
		}
		for j := range dst {
			dst[j] = lhs[j] + rhs[j]
		}
	}
	return nil
}
