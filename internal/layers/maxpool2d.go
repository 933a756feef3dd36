package layers

import (
	"fmt"

	"github.com/kestrel-ml/kestrel/internal/runtime"
	"github.com/kestrel-ml/kestrel/internal/tensor"
)

func init() {
	runtime.RegisterLayer("nn.MaxPool2d", NewMaxPool2d)
}

// MaxPool2d is a 2D max pooling layer over (C, H, W) samples.
//
//	out_h = (h + 2*padding_h - kernel_h) / stride_h + 1
//	out_w = (w + 2*padding_w - kernel_w) / stride_w + 1
//
// Padded cells never win the max (they are outside the input, not zeros).
type MaxPool2d struct {
	kernelH, kernelW   int
	strideH, strideW   int
	paddingH, paddingW int
}

// NewMaxPool2d builds a pooling layer from the operator's kernel_size,
// stride and padding int-list parameters. padding defaults to 0,0; stride
// defaults to the kernel size.
func NewMaxPool2d(op *runtime.Operator) (runtime.Layer, error) {
	kernel, ok := op.ParamInts("kernel_size")
	if !ok || len(kernel) != 2 {
		return nil, fmt.Errorf("maxpool2d: kernel_size must be a 2-int list")
	}
	if kernel[0] <= 0 || kernel[1] <= 0 {
		return nil, fmt.Errorf("maxpool2d: invalid kernel size %v", kernel)
	}

	stride := kernel
	if s, ok := op.ParamInts("stride"); ok {
		if len(s) != 2 || s[0] <= 0 || s[1] <= 0 {
			return nil, fmt.Errorf("maxpool2d: invalid stride %v", s)
		}
		stride = s
	}

	padding := []int{0, 0}
	if p, ok := op.ParamInts("padding"); ok {
		if len(p) != 2 || p[0] < 0 || p[1] < 0 {
			return nil, fmt.Errorf("maxpool2d: invalid padding %v", p)
		}
		padding = p
	}

	return &MaxPool2d{
		kernelH: kernel[0], kernelW: kernel[1],
		strideH: stride[0], strideW: stride[1],
		paddingH: padding[0], paddingW: padding[1],
	}, nil
}

// Name returns the layer name.
func (m *MaxPool2d) Name() string { return "MaxPool2d" }

// Forward pools each (C, H, W) sample independently.
func (m *MaxPool2d) Forward(inputs, outputs []*tensor.Tensor) error {
	if err := checkSameArity("maxpool2d", inputs, outputs); err != nil {
		return err
	}
	for i, in := range inputs {
		if err := m.poolSample(in, outputs[i]); err != nil {
			return fmt.Errorf("maxpool2d: sample %d: %w", i, err)
		}
	}
	return nil
}

func (m *MaxPool2d) poolSample(in, out *tensor.Tensor) error {
	inShape := in.Shape()
	if len(inShape) != 3 {
		return fmt.Errorf("want a (C,H,W) sample, got shape %v", inShape)
	}
	channels, h, w := inShape[0], inShape[1], inShape[2]
	outH := (h+2*m.paddingH-m.kernelH)/m.strideH + 1
	outW := (w+2*m.paddingW-m.kernelW)/m.strideW + 1
	if outH <= 0 || outW <= 0 {
		return fmt.Errorf("kernel %dx%d does not fit input %dx%d", m.kernelH, m.kernelW, h, w)
	}
	if !out.Shape().Equal(tensor.Shape{channels, outH, outW}) {
		return fmt.Errorf("output shape %v, want %v", out.Shape(), tensor.Shape{channels, outH, outW})
	}

	src := in.Data()
	dst := out.Data()
	for c := 0; c < channels; c++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				first := true
				var best float32
				for kh := 0; kh < m.kernelH; kh++ {
					ih := oh*m.strideH - m.paddingH + kh
					if ih < 0 || ih >= h {
						continue
					}
					for kw := 0; kw < m.kernelW; kw++ {
						iw := ow*m.strideW - m.paddingW + kw
						if iw < 0 || iw >= w {
							continue
						}
						v := src[(c*h+ih)*w+iw]
						if first || v > best {
							best = v
							first = false
						}
					}
				}
				dst[(c*outH+oh)*outW+ow] = best
			}
		}
	}
	return nil
}
