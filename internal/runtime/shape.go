package runtime

import (
	"fmt"

	"github.com/kestrel-ml/kestrel/internal/pgf"
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

// The shape resolver runs two mandatory passes during Build. After both,
// every operator has shape-correct, allocated input and output storage;
// any mismatch aborts the build.
//
// Per-sample buffer shapes by declared rank:
//
//	rank 4 [batch, C, H, W] -> batch tensors shaped (C, H, W)
//	rank 2 [batch, F]       -> batch tensors shaped (1, F, 1)

// checkDeclaredShape validates rank and static batch for a declared shape.
func checkDeclaredShape(shape []int) error {
	if len(shape) != 2 && len(shape) != 4 {
		return fmt.Errorf("unsupported shape rank %d, want 2 or 4", len(shape))
	}
	if shape[0] < 0 {
		return fmt.Errorf("dynamic batch size %d is not supported", shape[0])
	}
	return nil
}

// sampleShape returns the per-sample tensor shape for a declared shape.
func sampleShape(shape []int) tensor.Shape {
	if len(shape) == 4 {
		return tensor.Shape{shape[1], shape[2], shape[3]}
	}
	return tensor.Shape{1, shape[1], 1}
}

// checkSampleShape validates one existing buffer against a declared shape.
func checkSampleShape(buf *tensor.Tensor, shape []int) error {
	want := sampleShape(shape)
	if !buf.Shape().Equal(want) {
		return fmt.Errorf("buffer shape %v does not match declared %v (want per-sample %v)",
			buf.Shape(), shape, want)
	}
	return nil
}

// allocSamples allocates batch per-sample tensors for a declared shape.
func allocSamples(shape []int) ([]*tensor.Tensor, error) {
	batch := shape[0]
	data := make([]*tensor.Tensor, batch)
	for i := 0; i < batch; i++ {
		t, err := tensor.New(sampleShape(shape))
		if err != nil {
			return nil, err
		}
		data[i] = t
	}
	return data, nil
}

// initOperatorInputTensors validates or allocates the input storage of
// every operator.
func initOperatorInputTensors(operators []*Operator) error {
	if len(operators) == 0 {
		return fmt.Errorf("no operators to resolve input shapes for")
	}
	for _, op := range operators {
		for _, operand := range op.InputsSeq {
			if operand.Type != Float32 {
				return fmt.Errorf("operator %q: input %q: only float32 is supported, got %s",
					op.Name, operand.Name, operand.Type)
			}
			if err := checkDeclaredShape(operand.Shape); err != nil {
				return fmt.Errorf("operator %q: input %q: %w", op.Name, operand.Name, err)
			}

			batch := operand.Shape[0]
			if len(operand.Data) > 0 {
				if len(operand.Data) != batch {
					return fmt.Errorf("operator %q: input %q: %d buffers for batch size %d",
						op.Name, operand.Name, len(operand.Data), batch)
				}
				for i, buf := range operand.Data {
					if err := checkSampleShape(buf, operand.Shape); err != nil {
						return fmt.Errorf("operator %q: input %q sample %d: %w",
							op.Name, operand.Name, i, err)
					}
				}
				continue
			}

			data, err := allocSamples(operand.Shape)
			if err != nil {
				return fmt.Errorf("operator %q: input %q: %w", op.Name, operand.Name, err)
			}
			operand.Data = data
		}
	}
	return nil
}

// initOperatorOutputTensors validates or allocates the output storage of
// every operator, using the raw nodes' declared output operands. Raw node
// list and operator arena must line up one to one.
func initOperatorOutputTensors(rawNodes []*pgf.Node, operators []*Operator) error {
	if len(rawNodes) == 0 || len(operators) == 0 {
		return fmt.Errorf("no nodes to resolve output shapes for")
	}
	if len(rawNodes) != len(operators) {
		return fmt.Errorf("raw node count %d does not match operator count %d",
			len(rawNodes), len(operators))
	}

	for i, node := range rawNodes {
		op := operators[i]
		if node == nil {
			return fmt.Errorf("operator %q: raw node is missing", op.Name)
		}
		if len(node.Outputs) > 1 {
			return fmt.Errorf("operator %q declares %d outputs, only one output per node is supported",
				op.Name, len(node.Outputs))
		}
		if len(node.Outputs) == 0 {
			continue
		}

		declared := node.Outputs[0]
		if err := checkDeclaredShape(declared.Shape); err != nil {
			return fmt.Errorf("operator %q: output %q: %w", op.Name, declared.Name, err)
		}
		batch := declared.Shape[0]

		if op.Output == nil {
			data, err := allocSamples(declared.Shape)
			if err != nil {
				return fmt.Errorf("operator %q: output %q: %w", op.Name, declared.Name, err)
			}
			op.Output = &Operand{
				Name:  declared.Name + "_output",
				Type:  Float32,
				Shape: append([]int(nil), declared.Shape...),
				Data:  data,
			}
			continue
		}

		existing := op.Output
		if len(existing.Data) != batch {
			return fmt.Errorf("operator %q: output %q: %d buffers for batch size %d",
				op.Name, declared.Name, len(existing.Data), batch)
		}
		if existing.Type != Float32 {
			return fmt.Errorf("operator %q: output %q: only float32 is supported, got %s",
				op.Name, declared.Name, existing.Type)
		}
		if !shapeEqual(existing.Shape, declared.Shape) {
			return fmt.Errorf("operator %q: output %q: declared shape %v does not match existing %v",
				op.Name, declared.Name, declared.Shape, existing.Shape)
		}
		for j, buf := range existing.Data {
			if err := checkSampleShape(buf, declared.Shape); err != nil {
				return fmt.Errorf("operator %q: output %q sample %d: %w",
					op.Name, declared.Name, j, err)
			}
		}
	}
	return nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
