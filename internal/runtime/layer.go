package runtime

import (
	"fmt"

	"github.com/kestrel-ml/kestrel/internal/tensor"
)

// Layer is a computation unit bound to an operator at build time. Forward
// reads the flattened per-sample input tensors and writes into the
// operator's pre-allocated output tensors; it must never retain or alias
// either slice.
type Layer interface {
	Name() string
	Forward(inputs, outputs []*tensor.Tensor) error
}

// LayerBuilder constructs a layer for an operator, reading its parameters
// and weight attributes.
type LayerBuilder func(op *Operator) (Layer, error)

var layerBuilders = map[string]LayerBuilder{}

// RegisterLayer registers a builder under an operator type tag. Layers
// register themselves in init; a duplicate tag is a programming error and
// panics.
func RegisterLayer(opType string, builder LayerBuilder) {
	if _, ok := layerBuilders[opType]; ok {
		panic(fmt.Sprintf("runtime: layer %q registered twice", opType))
	}
	layerBuilders[opType] = builder
}

// CreateLayer builds the computation unit for an operator. An unregistered
// type tag means the operator kind is not implemented.
func CreateLayer(op *Operator) (Layer, error) {
	builder, ok := layerBuilders[op.Type]
	if !ok {
		return nil, fmt.Errorf("no layer registered for operator type %q", op.Type)
	}
	layer, err := builder(op)
	if err != nil {
		return nil, fmt.Errorf("create %q layer: %w", op.Type, err)
	}
	return layer, nil
}

// SupportedLayers returns the registered operator type tags.
func SupportedLayers() []string {
	types := make([]string, 0, len(layerBuilders))
	for t := range layerBuilders {
		types = append(types, t)
	}
	return types
}
