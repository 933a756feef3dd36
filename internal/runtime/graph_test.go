package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-ml/kestrel/internal/pgf"
)

func rawNode(name, typ string, inputs []string, consumers []string, shape []int) *pgf.Node {
	node := &pgf.Node{
		Name:   name,
		Type:   typ,
		Params: map[string]*pgf.Parameter{},
	}
	for _, producer := range inputs {
		node.Inputs = append(node.Inputs, &pgf.Operand{
			Name:  producer,
			DType: pgf.DTypeFloat32,
			Shape: append([]int(nil), shape...),
		})
	}
	node.Outputs = append(node.Outputs, &pgf.Operand{
		Name:      name,
		DType:     pgf.DTypeFloat32,
		Shape:     append([]int(nil), shape...),
		Consumers: consumers,
	})
	return node
}

func TestInitFromRawBuildsArena(t *testing.T) {
	raw := &pgf.Graph{Nodes: []*pgf.Node{
		rawNode("input", OpTypeInput, nil, []string{"relu"}, []int{1, 3, 4, 4}),
		rawNode("relu", "nn.ReLU", []string{"input"}, []string{"output"}, []int{1, 3, 4, 4}),
		rawNode("output", OpTypeOutput, []string{"relu"}, nil, []int{1, 3, 4, 4}),
	}}

	g := NewGraph("model.pgf", "model.bin")
	require.NoError(t, g.initFromRaw(raw))
	assert.Equal(t, GraphStateNeedBuild, g.State())
	require.Len(t, g.Operators(), 3)

	relu := g.Operator("relu")
	require.NotNil(t, relu)
	require.Len(t, relu.InputsSeq, 1)
	assert.Equal(t, "input", relu.InputsSeq[0].Name)
	assert.Same(t, relu.InputsSeq[0], relu.Inputs["input"])
	assert.Equal(t, []string{"output"}, relu.Consumers)
}

func TestInitFromRawSkipsNilNodes(t *testing.T) {
	raw := &pgf.Graph{Nodes: []*pgf.Node{
		rawNode("input", OpTypeInput, nil, nil, []int{1, 4}),
		nil,
	}}

	g := NewGraph("model.pgf", "model.bin")
	require.NoError(t, g.initFromRaw(raw))
	assert.Len(t, g.Operators(), 1)
}

func TestInitFromRawRejectsEmptyGraph(t *testing.T) {
	g := NewGraph("model.pgf", "model.bin")
	err := g.initFromRaw(&pgf.Graph{})
	require.Error(t, err)
	assert.Equal(t, GraphStateNeedInit, g.State())
}

func TestInitFromRawRejectsDuplicateNames(t *testing.T) {
	raw := &pgf.Graph{Nodes: []*pgf.Node{
		rawNode("a", "nn.ReLU", nil, nil, []int{1, 4}),
		rawNode("a", "nn.ReLU", nil, nil, []int{1, 4}),
	}}

	err := NewGraph("model.pgf", "model.bin").initFromRaw(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate operator name")
}

func TestConsumerEdgesOnlyFromDeclaredNames(t *testing.T) {
	// "b" shares the operand producer name "a" in its input map, but "a"
	// never declares "c" as a consumer, so no a->c edge may appear.
	raw := &pgf.Graph{Nodes: []*pgf.Node{
		rawNode("a", "nn.ReLU", nil, []string{"b", "ghost"}, []int{1, 4}),
		rawNode("b", "nn.ReLU", []string{"a"}, nil, []int{1, 4}),
		rawNode("c", "nn.ReLU", []string{"a"}, nil, []int{1, 4}),
	}}

	g := NewGraph("model.pgf", "model.bin")
	require.NoError(t, g.initFromRaw(raw))

	a := g.Operator("a")
	// "ghost" resolves to no operator and is dropped; "c" was never declared.
	assert.Equal(t, []string{"b"}, a.Consumers)
	assert.Equal(t, []string{"b", "ghost"}, a.ConsumerNames)
}

func TestDuplicateConsumerDeclarationWiresOneEdge(t *testing.T) {
	// Declaring the same consumer twice must not create two delivery edges:
	// each producer delivers to a consumer once per pass.
	raw := &pgf.Graph{Nodes: []*pgf.Node{
		rawNode("a", "nn.ReLU", nil, []string{"m", "m"}, []int{1, 4}),
		rawNode("m", "nn.Add", []string{"a"}, nil, []int{1, 4}),
	}}

	g := NewGraph("model.pgf", "model.bin")
	require.NoError(t, g.initFromRaw(raw))

	a := g.Operator("a")
	assert.Equal(t, []string{"m"}, a.Consumers)
	assert.Equal(t, []string{"m", "m"}, a.ConsumerNames)
}

func TestBuildOperatorRejectsBadDTypes(t *testing.T) {
	node := rawNode("x", "nn.ReLU", []string{"p"}, nil, []int{1, 4})
	node.Inputs[0].DType = 7

	_, err := buildOperator(node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported operand type code")

	node = rawNode("x", "nn.ReLU", nil, nil, []int{1, 4})
	node.Attrs = append(node.Attrs, &pgf.Attribute{Name: "weight", DType: 3, Shape: []int{2}})
	_, err = buildOperator(node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type code")
}

func TestBuildOperatorRejectsUnknownParamKind(t *testing.T) {
	node := rawNode("x", "nn.ReLU", nil, nil, []int{1, 4})
	node.Params["bad"] = &pgf.Parameter{Type: 42}

	_, err := buildOperator(node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parameter type code")
}

func TestConvertParameterCoversAllKinds(t *testing.T) {
	cases := []struct {
		raw  *pgf.Parameter
		kind ParameterKind
	}{
		{&pgf.Parameter{Type: pgf.ParamUnknown}, KindUnknown},
		{&pgf.Parameter{Type: pgf.ParamBool, Bool: true}, KindBool},
		{&pgf.Parameter{Type: pgf.ParamInt, Int: 3}, KindInt},
		{&pgf.Parameter{Type: pgf.ParamFloat, Float: 0.5}, KindFloat},
		{&pgf.Parameter{Type: pgf.ParamString, Str: "same"}, KindString},
		{&pgf.Parameter{Type: pgf.ParamIntArray, Ints: []int{1, 2}}, KindIntList},
		{&pgf.Parameter{Type: pgf.ParamFloatArray, Floats: []float32{1}}, KindFloatList},
		{&pgf.Parameter{Type: pgf.ParamStringArray, Strs: []string{"a"}}, KindStringList},
	}
	for _, tc := range cases {
		p, err := convertParameter(tc.raw)
		require.NoError(t, err)
		assert.Equal(t, tc.kind, p.Kind)
	}
}

func TestInitRejectsEmptyPaths(t *testing.T) {
	err := NewGraph("", "model.bin").Init()
	require.Error(t, err)

	err = NewGraph("model.pgf", "").Init()
	require.Error(t, err)
}

func TestInitFailsOnMissingFiles(t *testing.T) {
	g := NewGraph("/nonexistent/model.pgf", "/nonexistent/model.bin")
	err := g.Init()
	require.Error(t, err)
	assert.Equal(t, GraphStateNeedInit, g.State())
}

func TestPathAccessors(t *testing.T) {
	g := NewGraph("a.pgf", "a.bin")
	assert.Equal(t, "a.pgf", g.ParamPath())
	assert.Equal(t, "a.bin", g.BinPath())

	g.SetParamPath("b.pgf")
	g.SetBinPath("b.bin")
	assert.Equal(t, "b.pgf", g.ParamPath())
	assert.Equal(t, "b.bin", g.BinPath())
}
