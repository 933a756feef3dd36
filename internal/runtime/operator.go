package runtime

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reserved operator type tags. Marker operators carry no layer; they anchor
// the start and end of a forward pass.
const (
	OpTypeInput  = "pgf.Input"
	OpTypeOutput = "pgf.Output"
)

// ParameterKind enumerates the closed set of parameter value kinds.
type ParameterKind int

// The eight parameter kinds, in raw type-code order.
const (
	KindUnknown ParameterKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindIntList
	KindFloatList
	KindStringList
)

// Parameter is a typed configuration value attached to an operator.
// Kind selects which value field is meaningful.
type Parameter struct {
	Kind   ParameterKind
	Bool   bool
	Int    int
	Float  float32
	Str    string
	Ints   []int
	Floats []float32
	Strs   []string
}

// Attribute is a weight tensor owned by an operator: element type, shape
// and the raw little-endian payload.
type Attribute struct {
	Type  DataType
	Shape []int
	Data  []byte
}

// Float32s decodes the raw payload as little-endian float32 values.
func (a *Attribute) Float32s() []float32 {
	out := make([]float32, len(a.Data)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(a.Data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// Operator is one node of the executable graph. Cross-references to other
// operators are stored as names and resolved through the owning Graph's
// arena index.
type Operator struct {
	Name string
	Type string

	// Inputs keys each input operand by its producer's name; InputsSeq
	// preserves declaration order for layer argument binding.
	Inputs    map[string]*Operand
	InputsSeq []*Operand

	// Output is the single operand this operator produces.
	Output *Operand

	// ConsumerNames is the downstream-name list declared in the raw graph;
	// Consumers holds the subset that resolved to real operators.
	ConsumerNames []string
	Consumers     []string

	Attrs  map[string]*Attribute
	Params map[string]*Parameter

	// Layer is the computation unit bound at build time. Marker operators
	// have none.
	Layer Layer
}

// Attr returns the named weight attribute, or nil.
func (o *Operator) Attr(name string) *Attribute {
	return o.Attrs[name]
}

// ParamInt returns the named int parameter.
func (o *Operator) ParamInt(name string) (int, bool) {
	p, ok := o.Params[name]
	if !ok || p.Kind != KindInt {
		return 0, false
	}
	return p.Int, true
}

// ParamInts returns the named int-list parameter.
func (o *Operator) ParamInts(name string) ([]int, bool) {
	p, ok := o.Params[name]
	if !ok || p.Kind != KindIntList {
		return nil, false
	}
	return p.Ints, true
}

// ParamBool returns the named bool parameter.
func (o *Operator) ParamBool(name string) (bool, bool) {
	p, ok := o.Params[name]
	if !ok || p.Kind != KindBool {
		return false, false
	}
	return p.Bool, true
}

// ParamFloat returns the named float parameter.
func (o *Operator) ParamFloat(name string) (float32, bool) {
	p, ok := o.Params[name]
	if !ok || p.Kind != KindFloat {
		return 0, false
	}
	return p.Float, true
}

// ParamString returns the named string parameter.
func (o *Operator) ParamString(name string) (string, bool) {
	p, ok := o.Params[name]
	if !ok || p.Kind != KindString {
		return "", false
	}
	return p.Str, true
}

func (o *Operator) String() string {
	return fmt.Sprintf("%s(%s)", o.Name, o.Type)
}
