package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-ml/kestrel/internal/pgf"
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

func operatorWithInput(shape []int) *Operator {
	operand := &Operand{Name: "p", Type: Float32, Shape: shape}
	return &Operator{
		Name:      "op",
		Type:      "nn.ReLU",
		Inputs:    map[string]*Operand{"p": operand},
		InputsSeq: []*Operand{operand},
	}
}

func TestInputPassAllocatesRank4(t *testing.T) {
	op := operatorWithInput([]int{2, 3, 4, 4})
	require.NoError(t, initOperatorInputTensors([]*Operator{op}))

	operand := op.InputsSeq[0]
	require.Len(t, operand.Data, 2) // one buffer per batch sample
	for _, buf := range operand.Data {
		assert.True(t, buf.Shape().Equal(tensor.Shape{3, 4, 4}))
	}
}

func TestInputPassAllocatesRank2(t *testing.T) {
	op := operatorWithInput([]int{2, 10})
	require.NoError(t, initOperatorInputTensors([]*Operator{op}))

	operand := op.InputsSeq[0]
	require.Len(t, operand.Data, 2)
	for _, buf := range operand.Data {
		assert.True(t, buf.Shape().Equal(tensor.Shape{1, 10, 1}))
	}
}

func TestInputPassValidatesExistingBuffers(t *testing.T) {
	op := operatorWithInput([]int{2, 10})
	good, err := tensor.New(tensor.Shape{1, 10, 1})
	require.NoError(t, err)
	bad, err := tensor.New(tensor.Shape{1, 11, 1})
	require.NoError(t, err)

	op.InputsSeq[0].Data = []*tensor.Tensor{good, bad}
	err = initOperatorInputTensors([]*Operator{op})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match declared")
}

func TestInputPassRejectsBufferCountMismatch(t *testing.T) {
	op := operatorWithInput([]int{2, 10})
	buf, err := tensor.New(tensor.Shape{1, 10, 1})
	require.NoError(t, err)
	op.InputsSeq[0].Data = []*tensor.Tensor{buf}

	err = initOperatorInputTensors([]*Operator{op})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffers for batch size")
}

func TestInputPassRejectsBadRankAndDynamicBatch(t *testing.T) {
	err := initOperatorInputTensors([]*Operator{operatorWithInput([]int{1, 2, 3})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported shape rank")

	err = initOperatorInputTensors([]*Operator{operatorWithInput([]int{-1, 10})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamic batch")
}

func TestInputPassRejectsNonFloat32(t *testing.T) {
	op := operatorWithInput([]int{1, 10})
	op.InputsSeq[0].Type = Unknown

	err := initOperatorInputTensors([]*Operator{op})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only float32")
}

func TestOutputPassAllocates(t *testing.T) {
	raw := []*pgf.Node{rawNode("op", "nn.ReLU", nil, nil, []int{2, 3, 4, 4})}
	op := &Operator{Name: "op", Type: "nn.ReLU"}

	require.NoError(t, initOperatorOutputTensors(raw, []*Operator{op}))
	require.NotNil(t, op.Output)
	assert.Equal(t, "op_output", op.Output.Name)
	assert.Equal(t, Float32, op.Output.Type)
	assert.Equal(t, []int{2, 3, 4, 4}, op.Output.Shape)
	require.Len(t, op.Output.Data, 2)
	for _, buf := range op.Output.Data {
		assert.True(t, buf.Shape().Equal(tensor.Shape{3, 4, 4}))
	}
}

func TestOutputPassValidatesExisting(t *testing.T) {
	raw := []*pgf.Node{rawNode("op", "nn.ReLU", nil, nil, []int{1, 10})}
	buf, err := tensor.New(tensor.Shape{1, 10, 1})
	require.NoError(t, err)
	op := &Operator{
		Name: "op",
		Type: "nn.ReLU",
		Output: &Operand{
			Name:  "op_output",
			Type:  Float32,
			Shape: []int{1, 10},
			Data:  []*tensor.Tensor{buf},
		},
	}
	require.NoError(t, initOperatorOutputTensors(raw, []*Operator{op}))

	// Declared shape drifts from the existing operand.
	raw[0].Outputs[0].Shape = []int{1, 11}
	err = initOperatorOutputTensors(raw, []*Operator{op})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match existing")
}

func TestOutputPassRejectsMultipleOutputs(t *testing.T) {
	node := rawNode("op", "nn.ReLU", nil, nil, []int{1, 10})
	node.Outputs = append(node.Outputs, &pgf.Operand{
		Name:  "extra",
		DType: pgf.DTypeFloat32,
		Shape: []int{1, 10},
	})
	op := &Operator{Name: "op", Type: "nn.ReLU"}

	err := initOperatorOutputTensors([]*pgf.Node{node}, []*Operator{op})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one output per node")
}

func TestOutputPassRejectsCountMismatch(t *testing.T) {
	raw := []*pgf.Node{
		rawNode("a", "nn.ReLU", nil, nil, []int{1, 10}),
		rawNode("b", "nn.ReLU", nil, nil, []int{1, 10}),
	}
	op := &Operator{Name: "a", Type: "nn.ReLU"}

	err := initOperatorOutputTensors(raw, []*Operator{op})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match operator count")
}

func TestOutputPassSkipsNodesWithoutOutputs(t *testing.T) {
	node := rawNode("out", OpTypeOutput, []string{"p"}, nil, []int{1, 10})
	node.Outputs = nil
	op := &Operator{Name: "out", Type: OpTypeOutput}

	require.NoError(t, initOperatorOutputTensors([]*pgf.Node{node}, []*Operator{op}))
	assert.Nil(t, op.Output)
}
