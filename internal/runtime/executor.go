package runtime

import (
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/kestrel-ml/kestrel/internal/tensor"
)

// execState is the per-call scheduling context. Delivered-producer counters
// and the queued set live here rather than on the persistent graph, so a
// built graph can be reused (and, in a concurrent variant, shared) across
// Forward calls without leftover state.
type execState struct {
	meet   map[string]int  // distinct producer deliveries per operator
	queued map[string]bool // operators already pushed to the ready queue
	queue  []*Operator     // FIFO of ready operators
}

func newExecState() *execState {
	return &execState{
		meet:   make(map[string]int),
		queued: make(map[string]bool),
	}
}

func (s *execState) push(op *Operator) {
	s.queue = append(s.queue, op)
}

func (s *execState) pop() *Operator {
	op := s.queue[0]
	s.queue = s.queue[1:]
	return op
}

// Forward runs one pass from the configured input node to the output node
// and returns the output node's input tensors. The graph must be Complete.
//
// Every operator is dispatched exactly once: a consumer enters the ready
// queue the moment its delivery counter reaches its declared input-operand
// count. With debug set, per-operator wall time is logged.
func (g *Graph) Forward(inputs []*tensor.Tensor, debug bool) ([]*tensor.Tensor, error) {
	start := time.Now()
	if g.state < GraphStateComplete {
		return nil, fmt.Errorf("graph is not built (state %s), call Build first", g.state)
	}

	inputOp, ok := g.inputOps[g.inputName]
	if !ok {
		return nil, fmt.Errorf("input node %q not found", g.inputName)
	}
	outputOp, ok := g.outputOps[g.outputName]
	if !ok {
		return nil, fmt.Errorf("output node %q not found", g.outputName)
	}

	st := newExecState()
	st.queued[inputOp.Name] = true
	st.push(inputOp)

	reachedOutput := false
	for len(st.queue) > 0 {
		op := st.pop()
		if op == nil || op == outputOp {
			reachedOutput = true
			if debug {
				klog.Infof("inference reached output node %q", g.outputName)
			}
			break
		}

		if op == inputOp {
			// The caller's tensors stand in for the input marker's output.
			if err := g.propagate(st, op, inputs); err != nil {
				return nil, err
			}
			continue
		}

		// Push-once scheduling: a dequeued operator is ready by construction.
		if got, want := st.meet[op.Name], len(op.Inputs); got != want {
			return nil, fmt.Errorf("operator %q dequeued with %d of %d deliveries", op.Name, got, want)
		}

		layerInputs := gatherInputs(op)
		if len(layerInputs) == 0 {
			return nil, fmt.Errorf("operator %q has no input tensors", op.Name)
		}
		if op.Output == nil {
			return nil, fmt.Errorf("operator %q has no output storage", op.Name)
		}
		if op.Layer == nil {
			return nil, fmt.Errorf("operator %q has no bound layer", op.Name)
		}

		opStart := time.Now()
		if err := op.Layer.Forward(layerInputs, op.Output.Data); err != nil {
			return nil, fmt.Errorf("operator %q (%s): forward: %w", op.Name, op.Type, err)
		}
		if debug {
			klog.Infof("%s %s", op.Name, time.Since(opStart))
		}

		if err := g.propagate(st, op, op.Output.Data); err != nil {
			return nil, err
		}
	}

	if !reachedOutput {
		return nil, fmt.Errorf("forward pass never reached output node %q, graph is malformed", g.outputName)
	}

	if len(outputOp.InputsSeq) != 1 {
		return nil, fmt.Errorf("output node %q is reached by %d producer paths, only one is supported",
			g.outputName, len(outputOp.InputsSeq))
	}
	if debug {
		klog.Infof("forward pass finished in %s", time.Since(start))
	}
	return outputOp.InputsSeq[0].Data, nil
}

// gatherInputs flattens the operator's input operands, in declaration
// order, into one per-sample tensor list for the layer contract.
func gatherInputs(op *Operator) []*tensor.Tensor {
	var out []*tensor.Tensor
	for _, operand := range op.InputsSeq {
		out = append(out, operand.Data...)
	}
	return out
}

// propagate copies the producer's output tensors into every consumer that
// declares an input operand keyed by the producer's name, counts the
// delivery, and enqueues consumers the moment they become ready.
func (g *Graph) propagate(st *execState, producer *Operator, outputs []*tensor.Tensor) error {
	for _, name := range producer.Consumers {
		consumer := g.byName[name]
		operand, ok := consumer.Inputs[producer.Name]
		if !ok {
			continue
		}

		if len(outputs) != len(operand.Data) {
			return fmt.Errorf("%q -> %q: tensor count mismatch (%d produced, %d expected)",
				producer.Name, name, len(outputs), len(operand.Data))
		}
		for i, src := range outputs {
			if err := operand.Data[i].CopyFrom(src); err != nil {
				return fmt.Errorf("%q -> %q sample %d: %w", producer.Name, name, i, err)
			}
		}

		// Readiness counts distinct producers, so the input-operand map is
		// the yardstick, not the declaration-order list.
		st.meet[name]++
		if !st.queued[name] && st.meet[name] == len(consumer.Inputs) {
			st.queued[name] = true
			st.push(consumer)
		}
	}
	return nil
}
