package layers

import (
	"fmt"

	"github.com/kestrel-ml/kestrel/internal/runtime"
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

func init() {
	runtime.RegisterLayer("nn.Linear", NewLinear)
}

// Linear is a fully-connected layer over rank-2 operands. Samples are
// (1, F, 1) tensors; y = W x + b with W shaped (out_features, in_features).
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      []float32
	bias        []float32 // nil when bias param is false
}

// NewLinear builds a linear layer from the operator's weight/bias
// attributes and its bias flag.
func NewLinear(op *runtime.Operator) (runtime.Layer, error) {
	weight := op.Attr("weight")
	if weight == nil {
		return nil, fmt.Errorf("linear: weight attribute is missing")
	}
	if len(weight.Shape) != 2 {
		return nil, fmt.Errorf("linear: weight must be rank 2, got shape %v", weight.Shape)
	}
	outFeatures, inFeatures := weight.Shape[0], weight.Shape[1]
	weightData := weight.Float32s()
	if len(weightData) != outFeatures*inFeatures {
		return nil, fmt.Errorf("linear: weight has %d values, want %d", len(weightData), outFeatures*inFeatures)
	}

	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weightData,
	}

	useBias, ok := op.ParamBool("bias")
	if !ok || useBias {
		bias := op.Attr("bias")
		if bias == nil {
			return nil, fmt.Errorf("linear: bias attribute is missing")
		}
		biasData := bias.Float32s()
		if len(biasData) != outFeatures {
			return nil, fmt.Errorf("linear: bias has %d values, want %d", len(biasData), outFeatures)
		}
		l.bias = biasData
	}
	return l, nil
}

// Name returns the layer name.
func (l *Linear) Name() string { return "Linear" }

// Forward computes y = W x + b for each sample.
func (l *Linear) Forward(inputs, outputs []*tensor.Tensor) error {
	if err := checkSameArity("linear", inputs, outputs); err != nil {
		return err
	}
	for i, in := range inputs {
		src := in.Data()
		dst := outputs[i].Data()
		if len(src) != l.inFeatures {
			return fmt.Errorf("linear: sample %d: input has %d features, want %d", i, len(src), l.inFeatures)
		}
		if len(dst) != l.outFeatures {
			return fmt.Errorf("linear: sample %d: output has %d features, want %d", i, len(dst), l.outFeatures)
		}
		for row := 0; row < l.outFeatures; row++ {
			var sum float32
			w := l.weight[row*l.inFeatures:]
			for col := 0; col < l.inFeatures; col++ {
				sum += w[col] * src[col]
			}
			if l.bias != nil {
				sum += l.bias[row]
			}
			dst[row] = sum
		}
	}
	return nil
}
