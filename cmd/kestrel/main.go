// Command kestrel runs a forward pass over a serialized model graph
// described by an HCL run manifest.
package main

import (
	"flag"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/kestrel-ml/kestrel/internal/config"
	_ "github.com/kestrel-ml/kestrel/internal/layers"
	"github.com/kestrel-ml/kestrel/internal/runtime"
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

func main() {
	manifest := flag.String("config", "kestrel.hcl", "path to the run manifest")
	fill := flag.Float64("fill", 1.0, "value to fill the input batch with")
	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := config.Load(*manifest)
	if err != nil {
		klog.Exitf("load manifest: %v", err)
	}

	if err := run(cfg, float32(*fill)); err != nil {
		klog.Exitf("%v", err)
	}
}

func run(cfg *config.Config, fill float32) error {
	m := &cfg.Model
	graph := runtime.NewGraph(m.ParamPath, m.BinPath)
	if err := graph.Build(m.InputNode, m.OutputNode); err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	klog.Infof("graph built: %d operators, layers available: %v",
		len(graph.Operators()), runtime.SupportedLayers())

	inputs, err := makeBatch(m.InputShape, fill)
	if err != nil {
		return fmt.Errorf("allocate input batch: %w", err)
	}

	outputs, err := graph.Forward(inputs, m.Debug)
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}

	for i, out := range outputs {
		minV, maxV, mean := stats(out.Data())
		fmt.Printf("sample %d: shape %v, min %.6f, max %.6f, mean %.6f\n",
			i, out.Shape(), minV, maxV, mean)
	}
	return nil
}

// makeBatch allocates one per-sample tensor per batch entry, mirroring the
// runtime's buffer layout for the declared input shape.
func makeBatch(shape []int, fill float32) ([]*tensor.Tensor, error) {
	var sample tensor.Shape
	if len(shape) == 4 {
		sample = tensor.Shape{shape[1], shape[2], shape[3]}
	} else {
		sample = tensor.Shape{1, shape[1], 1}
	}

	batch := make([]*tensor.Tensor, shape[0])
	for i := range batch {
		t, err := tensor.New(sample)
		if err != nil {
			return nil, err
		}
		t.Fill(fill)
		batch[i] = t
	}
	return batch, nil
}

func stats(data []float32) (minV, maxV, mean float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minV, maxV = data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += float64(v)
	}
	return minV, maxV, float32(sum / float64(len(data)))
}
