// Package pgf implements the portable graph format, the serialized model
// consumed by the runtime: a line-oriented topology file describing nodes,
// operands, parameters and attribute shapes, plus a little-endian float32
// weights blob assigned to attributes in declaration order.
//
// Example:
//
//	graph, err := pgf.Load("model.pgf", "model.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
package pgf
