package pgf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Topology files start with "pgf v1". Weights blobs start with a 4-byte
// magic and a uint32 version, followed by raw little-endian float32 data.
const (
	topologyHeader = "pgf v1"
	weightsMagic   = 0x57464750 // "PGFW" in little-endian
	weightsVersion = 1
)

// Load reads a topology file and its weights blob and returns the raw graph.
// Attribute payloads are sliced out of the blob in declaration order; the
// blob must contain exactly the bytes the attributes declare.
func Load(paramPath, binPath string) (*Graph, error) {
	f, err := os.Open(paramPath)
	if err != nil {
		return nil, fmt.Errorf("open topology %s: %w", paramPath, err)
	}
	defer f.Close()

	graph, err := parseTopology(f)
	if err != nil {
		return nil, fmt.Errorf("parse topology %s: %w", paramPath, err)
	}

	if err := loadWeights(binPath, graph); err != nil {
		return nil, fmt.Errorf("load weights %s: %w", binPath, err)
	}
	return graph, nil
}

// parseTopology reads the line-oriented node records.
//
// Record grammar (fields are whitespace-separated):
//
//	pgf v1
//	node <type> <name>
//	input <producer> <dtype> <shape>
//	output <name> <dtype> <shape> <consumers|->
//	param <name> <code> [value...]
//	attr <name> <dtype> <shape>
//	end
func parseTopology(r io.Reader) (*Graph, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	graph := &Graph{}
	var current *Node
	sawHeader := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			if line != topologyHeader {
				return nil, fmt.Errorf("line %d: bad header %q, want %q", lineNo, line, topologyHeader)
			}
			sawHeader = true
			continue
		}

		fields := strings.Fields(line)
		keyword := fields[0]

		if keyword == "node" {
			if current != nil {
				return nil, fmt.Errorf("line %d: node %q not closed with end", lineNo, current.Name)
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: node record wants type and name", lineNo)
			}
			current = &Node{
				Type:   fields[1],
				Name:   fields[2],
				Params: make(map[string]*Parameter),
			}
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("line %d: %q outside a node record", lineNo, keyword)
		}

		switch keyword {
		case "input":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: input record wants producer, dtype and shape", lineNo)
			}
			op, err := parseOperand(fields[1], fields[2], fields[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Inputs = append(current.Inputs, op)

		case "output":
			if len(fields) != 5 {
				return nil, fmt.Errorf("line %d: output record wants name, dtype, shape and consumers", lineNo)
			}
			op, err := parseOperand(fields[1], fields[2], fields[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if fields[4] != "-" {
				op.Consumers = strings.Split(fields[4], ",")
			}
			current.Outputs = append(current.Outputs, op)

		case "param":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: param record wants name and type code", lineNo)
			}
			param, err := parseParameter(fields[2], fields[3:])
			if err != nil {
				return nil, fmt.Errorf("line %d: param %s: %w", lineNo, fields[1], err)
			}
			current.Params[fields[1]] = param

		case "attr":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: attr record wants name, dtype and shape", lineNo)
			}
			dtype, err := parseDType(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			shape, err := parseShape(fields[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Attrs = append(current.Attrs, &Attribute{
				Name:  fields[1],
				DType: dtype,
				Shape: shape,
			})

		case "end":
			graph.Nodes = append(graph.Nodes, current)
			current = nil

		default:
			return nil, fmt.Errorf("line %d: unknown record %q", lineNo, keyword)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("empty topology file")
	}
	if current != nil {
		return nil, fmt.Errorf("node %q not closed with end", current.Name)
	}
	return graph, nil
}

// loadWeights slices the blob into the attributes in declaration order.
func loadWeights(binPath string, graph *Graph) error {
	total := 0
	for _, node := range graph.Nodes {
		for _, attr := range node.Attrs {
			total += attrByteSize(attr)
		}
	}
	if total == 0 {
		// Weight-free graphs may omit the blob entirely.
		if _, err := os.Stat(binPath); os.IsNotExist(err) {
			return nil
		}
	}

	f, err := os.Open(binPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var header struct {
		Magic   uint32
		Version uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if header.Magic != weightsMagic {
		return fmt.Errorf("bad magic 0x%08x, want 0x%08x", header.Magic, weightsMagic)
	}
	if header.Version != weightsVersion {
		return fmt.Errorf("unsupported version %d", header.Version)
	}

	for _, node := range graph.Nodes {
		for _, attr := range node.Attrs {
			buf := make([]byte, attrByteSize(attr))
			if _, err := io.ReadFull(f, buf); err != nil {
				return fmt.Errorf("attribute %s.%s: %w", node.Name, attr.Name, err)
			}
			attr.Data = buf
		}
	}

	// Trailing bytes mean the topology and the blob disagree. ReadFull
	// keeps retrying short reads, so only a true end-of-file passes.
	var extra [1]byte
	switch _, err := io.ReadFull(f, extra[:]); err {
	case io.EOF:
		return nil
	case nil:
		return fmt.Errorf("weights blob has trailing bytes beyond declared attributes")
	default:
		return fmt.Errorf("check for trailing bytes: %w", err)
	}
}

func attrByteSize(attr *Attribute) int {
	n := 1
	for _, dim := range attr.Shape {
		n *= dim
	}
	return n * 4 // float32 payloads only
}

func parseOperand(name, dtypeField, shapeField string) (*Operand, error) {
	dtype, err := parseDType(dtypeField)
	if err != nil {
		return nil, err
	}
	shape, err := parseShape(shapeField)
	if err != nil {
		return nil, err
	}
	return &Operand{Name: name, DType: dtype, Shape: shape}, nil
}

func parseDType(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad dtype code %q", s)
	}
	return int32(v), nil
}

// parseShape accepts comma-separated dimensions. Negative dimensions are
// kept as-is; the runtime rejects them as dynamic.
func parseShape(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	shape := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad shape %q", s)
		}
		shape = append(shape, v)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("empty shape %q", s)
	}
	return shape, nil
}

func parseParameter(codeField string, values []string) (*Parameter, error) {
	code, err := strconv.ParseInt(codeField, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad type code %q", codeField)
	}
	param := &Parameter{Type: int32(code)}

	one := func() (string, error) {
		if len(values) != 1 {
			return "", fmt.Errorf("want exactly one value, got %d", len(values))
		}
		return values[0], nil
	}

	switch int32(code) {
	case ParamUnknown:
		// No value.
	case ParamBool:
		v, err := one()
		if err != nil {
			return nil, err
		}
		param.Bool, err = strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
	case ParamInt:
		v, err := one()
		if err != nil {
			return nil, err
		}
		param.Int, err = strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
	case ParamFloat:
		v, err := one()
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, err
		}
		param.Float = float32(f)
	case ParamString:
		param.Str = strings.Join(values, " ")
	case ParamIntArray:
		v, err := one()
		if err != nil {
			return nil, err
		}
		for _, p := range strings.Split(v, ",") {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, err
			}
			param.Ints = append(param.Ints, n)
		}
	case ParamFloatArray:
		v, err := one()
		if err != nil {
			return nil, err
		}
		for _, p := range strings.Split(v, ",") {
			f, err := strconv.ParseFloat(p, 32)
			if err != nil {
				return nil, err
			}
			param.Floats = append(param.Floats, float32(f))
		}
	case ParamStringArray:
		v, err := one()
		if err != nil {
			return nil, err
		}
		param.Strs = strings.Split(v, ",")
	default:
		return nil, fmt.Errorf("unknown parameter type code %d", code)
	}
	return param, nil
}
