package pgf

// Operand data type codes as they appear in topology files.
// Only float32 models are produced today, but the code travels with every
// operand and attribute so the runtime can reject anything else.
const (
	DTypeUnknown int32 = 0
	DTypeFloat32 int32 = 1
)

// Parameter type codes.
const (
	ParamUnknown     int32 = 0
	ParamBool        int32 = 1
	ParamInt         int32 = 2
	ParamFloat       int32 = 3
	ParamString      int32 = 4
	ParamIntArray    int32 = 5
	ParamFloatArray  int32 = 6
	ParamStringArray int32 = 7
)

// Operand describes a tensor edge endpoint on a node.
// For node inputs, Name is the producing node's name. For node outputs,
// Name is the operand's own name and Consumers lists the downstream nodes
// that read it.
type Operand struct {
	Name      string
	DType     int32
	Shape     []int
	Consumers []string
}

// Attribute is a named weight: a dtype code, a shape, and the raw bytes
// sliced out of the weights blob.
type Attribute struct {
	Name  string
	DType int32
	Shape []int
	Data  []byte
}

// Parameter is a configuration value attached to a node. Type selects
// which of the value fields is meaningful.
type Parameter struct {
	Type   int32
	Bool   bool
	Int    int
	Float  float32
	Str    string
	Ints   []int
	Floats []float32
	Strs   []string
}

// Node is one raw graph node: a computation with named inputs, outputs,
// weights and configuration parameters.
type Node struct {
	Name    string
	Type    string
	Inputs  []*Operand
	Outputs []*Operand
	Attrs   []*Attribute // declaration order matches the weights blob
	Params  map[string]*Parameter
}

// Attr returns the named attribute, or nil if the node has none.
func (n *Node) Attr(name string) *Attribute {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Graph is a parsed model: the flat node list in file order.
type Graph struct {
	Nodes []*Node
}
