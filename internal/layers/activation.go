package layers

import (
	"fmt"
	"math"

	"github.com/kestrel-ml/kestrel/internal/runtime"
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

func init() {
	runtime.RegisterLayer("nn.ReLU", func(op *runtime.Operator) (runtime.Layer, error) {
		return &ReLU{}, nil
	})
	runtime.RegisterLayer("nn.Sigmoid", func(op *runtime.Operator) (runtime.Layer, error) {
		return &Sigmoid{}, nil
	})
}

// ReLU applies the element-wise function f(x) = max(0, x).
type ReLU struct{}

// Name returns the layer name.
func (r *ReLU) Name() string { return "ReLU" }

// Forward applies ReLU sample by sample.
func (r *ReLU) Forward(inputs, outputs []*tensor.Tensor) error {
	if err := checkSameArity("relu", inputs, outputs); err != nil {
		return err
	}
	for i, in := range inputs {
		src := in.Data()
		dst := outputs[i].Data()
		if len(src) != len(dst) {
			return fmt.Errorf("relu: sample %d: input has %d elements, output %d", i, len(src), len(dst))
		}
		for j, v := range src {
			if v > 0 {
				dst[j] = v
			} else {
				dst[j] = 0
			}
		}
	}
	return nil
}

// Sigmoid applies the element-wise function f(x) = 1 / (1 + exp(-x)).
type Sigmoid struct{}

// Name returns the layer name.
func (s *Sigmoid) Name() string { return "Sigmoid" }

// Forward applies Sigmoid sample by sample.
func (s *Sigmoid) Forward(inputs, outputs []*tensor.Tensor) error {
	if err := checkSameArity("sigmoid", inputs, outputs); err != nil {
		return err
	}
	for i, in := range inputs {
		src := in.Data()
		dst := outputs[i].Data()
		if len(src) != len(dst) {
			return fmt.Errorf("sigmoid: sample %d: input has %d elements, output %d", i, len(src), len(dst))
		}
		for j, v := range src {
			dst[j] = float32(1.0 / (1.0 + math.Exp(float64(-v))))
		}
	}
	return nil
}

// checkSameArity validates the one-operand layer contract: one output
// sample per input sample, none missing.
func checkSameArity(name string, inputs, outputs []*tensor.Tensor) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%s: input tensors are empty", name)
	}
	if len(inputs) != len(outputs) {
		return fmt.Errorf("%s: %d input samples but %d output samples", name, len(inputs), len(outputs))
	}
	return nil
}
