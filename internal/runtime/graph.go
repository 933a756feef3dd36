package runtime

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/kestrel-ml/kestrel/internal/pgf"
)

// GraphState is the lifecycle gate: a graph must be initialized and built
// before it can run.
type GraphState int

// Lifecycle states, in progression order.
const (
	GraphStateNeedInit GraphState = iota
	GraphStateNeedBuild
	GraphStateComplete
)

// String returns a human-readable state name.
func (s GraphState) String() string {
	switch s {
	case GraphStateNeedInit:
		return "NeedInit"
	case GraphStateNeedBuild:
		return "NeedBuild"
	case GraphStateComplete:
		return "Complete"
	default:
		return fmt.Sprintf("GraphState(%d)", int(s))
	}
}

// Graph owns the operator arena and the lifecycle state. Operators refer to
// each other by name through the arena index, never by direct pointer.
type Graph struct {
	paramPath string
	binPath   string

	state GraphState
	raw   *pgf.Graph

	operators []*Operator
	byName    map[string]*Operator

	inputOps  map[string]*Operator
	outputOps map[string]*Operator

	inputName  string
	outputName string
}

// NewGraph creates an unloaded graph over a topology file and weights blob.
func NewGraph(paramPath, binPath string) *Graph {
	return &Graph{
		paramPath: paramPath,
		binPath:   binPath,
		state:     GraphStateNeedInit,
	}
}

// ParamPath returns the topology file path.
func (g *Graph) ParamPath() string { return g.paramPath }

// BinPath returns the weights blob path.
func (g *Graph) BinPath() string { return g.binPath }

// SetParamPath replaces the topology file path.
func (g *Graph) SetParamPath(path string) { g.paramPath = path }

// SetBinPath replaces the weights blob path.
func (g *Graph) SetBinPath(path string) { g.binPath = path }

// State returns the current lifecycle state.
func (g *Graph) State() GraphState { return g.state }

// Operators returns the operator arena.
func (g *Graph) Operators() []*Operator { return g.operators }

// Operator returns the named operator from the arena, or nil.
func (g *Graph) Operator(name string) *Operator { return g.byName[name] }

// Init loads the raw graph from the configured paths and builds the
// operator arena. On success the graph advances to NeedBuild.
func (g *Graph) Init() error {
	if g.paramPath == "" || g.binPath == "" {
		return fmt.Errorf("topology or weights path is empty")
	}

	raw, err := pgf.Load(g.paramPath, g.binPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if err := g.initFromRaw(raw); err != nil {
		return err
	}
	return nil
}

// initFromRaw builds and wires operators from an already-loaded raw graph.
func (g *Graph) initFromRaw(raw *pgf.Graph) error {
	if len(raw.Nodes) == 0 {
		return fmt.Errorf("topology %s defines no nodes", g.paramPath)
	}

	g.operators = g.operators[:0]
	g.byName = make(map[string]*Operator, len(raw.Nodes))

	for _, node := range raw.Nodes {
		if node == nil {
			klog.Warningf("skipping empty node entry in %s", g.paramPath)
			continue
		}
		op, err := buildOperator(node)
		if err != nil {
			return fmt.Errorf("node %q: %w", node.Name, err)
		}
		if _, ok := g.byName[op.Name]; ok {
			return fmt.Errorf("duplicate operator name %q", op.Name)
		}
		g.operators = append(g.operators, op)
		g.byName[op.Name] = op
	}

	// Consumer edges: P feeds C iff C's name appears in P's declared
	// consumer-name list. Shared operand names elsewhere never wire an
	// edge, and a name declared twice still wires a single edge (one
	// delivery per producer per pass).
	for _, op := range g.operators {
		seen := make(map[string]bool, len(op.ConsumerNames))
		for _, name := range op.ConsumerNames {
			consumer, ok := g.byName[name]
			if !ok || consumer == op || seen[name] {
				continue
			}
			seen[name] = true
			op.Consumers = append(op.Consumers, name)
		}
	}

	g.raw = raw
	g.state = GraphStateNeedBuild
	return nil
}

// buildOperator translates one raw node into an executable operator.
func buildOperator(node *pgf.Node) (*Operator, error) {
	op := &Operator{
		Name:   node.Name,
		Type:   node.Type,
		Inputs: make(map[string]*Operand, len(node.Inputs)),
		Attrs:  make(map[string]*Attribute, len(node.Attrs)),
		Params: make(map[string]*Parameter, len(node.Params)),
	}

	for _, in := range node.Inputs {
		if in.DType != pgf.DTypeFloat32 {
			return nil, fmt.Errorf("input from %q: unsupported operand type code %d", in.Name, in.DType)
		}
		operand := &Operand{
			Name:  in.Name,
			Type:  Float32,
			Shape: append([]int(nil), in.Shape...),
		}
		op.Inputs[in.Name] = operand
		op.InputsSeq = append(op.InputsSeq, operand)
	}

	for _, out := range node.Outputs {
		op.ConsumerNames = append(op.ConsumerNames, out.Consumers...)
	}

	for _, attr := range node.Attrs {
		if attr.DType != pgf.DTypeFloat32 {
			return nil, fmt.Errorf("attribute %q: unsupported type code %d", attr.Name, attr.DType)
		}
		op.Attrs[attr.Name] = &Attribute{
			Type:  Float32,
			Shape: append([]int(nil), attr.Shape...),
			Data:  attr.Data,
		}
	}

	for name, param := range node.Params {
		converted, err := convertParameter(param)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		op.Params[name] = converted
	}

	return op, nil
}

// convertParameter maps a raw type code onto the closed parameter union.
func convertParameter(p *pgf.Parameter) (*Parameter, error) {
	switch p.Type {
	case pgf.ParamUnknown:
		return &Parameter{Kind: KindUnknown}, nil
	case pgf.ParamBool:
		return &Parameter{Kind: KindBool, Bool: p.Bool}, nil
	case pgf.ParamInt:
		return &Parameter{Kind: KindInt, Int: p.Int}, nil
	case pgf.ParamFloat:
		return &Parameter{Kind: KindFloat, Float: p.Float}, nil
	case pgf.ParamString:
		return &Parameter{Kind: KindString, Str: p.Str}, nil
	case pgf.ParamIntArray:
		return &Parameter{Kind: KindIntList, Ints: p.Ints}, nil
	case pgf.ParamFloatArray:
		return &Parameter{Kind: KindFloatList, Floats: p.Floats}, nil
	case pgf.ParamStringArray:
		return &Parameter{Kind: KindStringList, Strs: p.Strs}, nil
	default:
		return nil, fmt.Errorf("unknown parameter type code %d", p.Type)
	}
}

// Build binds layers, resolves tensor storage and records the input/output
// node names. Init runs first if it has not yet. On success the graph is
// Complete and ready for Forward.
func (g *Graph) Build(inputName, outputName string) error {
	if g.state == GraphStateNeedInit {
		if err := g.Init(); err != nil {
			return fmt.Errorf("init graph: %w", err)
		}
	}
	if len(g.operators) == 0 {
		return fmt.Errorf("graph has no operators, init may have been skipped")
	}

	g.inputOps = make(map[string]*Operator)
	g.outputOps = make(map[string]*Operator)

	for _, op := range g.operators {
		switch op.Type {
		case OpTypeInput:
			g.inputOps[op.Name] = op
		case OpTypeOutput:
			g.outputOps[op.Name] = op
		default:
			layer, err := CreateLayer(op)
			if err != nil {
				return fmt.Errorf("operator %q: %w", op.Name, err)
			}
			op.Layer = layer
		}
	}

	if err := initOperatorInputTensors(g.operators); err != nil {
		return err
	}
	if err := initOperatorOutputTensors(g.raw.Nodes, g.operators); err != nil {
		return err
	}

	g.inputName = inputName
	g.outputName = outputName
	g.state = GraphStateComplete
	return nil
}
