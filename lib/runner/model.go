// Copyright 2026 The NeuraTable Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runner

import (
	"errors"
	"fmt"

	"github.com/gomlx/onnx-gomlx/onnx"

	"github.com/mayjs/NeuraTable/lib/tile"
)

var (
	// ErrTooManyInputs is returned for models with more than one input
	// tensor; the pipeline only feeds image data.
	ErrTooManyInputs = errors.New("model must have exactly one input")

	// ErrUnsupportedInputShape is returned when the input tensor is not a
	// fixed-size 3-channel image in NCHW or NHWC layout.
	ErrUnsupportedInputShape = errors.New("unsupported model input shape")

	// ErrNoSuitableOutput is returned when no output tensor matches the
	// input layout at an integer scale.
	ErrNoSuitableOutput = errors.New("no model output matches the input layout")
)

// ioShape describes one named model input or output.
type ioShape struct {
	Name string
	Dims []int64
}

// ModelLayout is everything the runner needs to know about a model's tensor
// interface: which tensors to bind, how axes are ordered, and how much larger
// the output is than the input.
type ModelLayout struct {
	InputName  string
	OutputName string
	Order      ChannelOrder
	HasBatch   bool

	InputShape  []int64
	OutputShape []int64

	Channels  int
	ChunkSize tile.ChunkSize

	// OutputScale is the integer factor by which the output spatial
	// dimensions exceed the input's. 1 means same-size output.
	OutputScale int
}

// inspectModel derives a ModelLayout from raw input/output shapes. It is the
// shape-level core of model loading, split out so layout rules can be tested
// without ONNX files.
func inspectModel(inputs, outputs []ioShape) (*ModelLayout, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyInputs, len(inputs))
	}
	input := inputs[0]

	order, err := detectChannelOrder(input.Dims)
	if err != nil {
		return nil, err
	}

	output, scale, err := matchOutput(input, order, outputs)
	if err != nil {
		return nil, err
	}

	channels, _ := order.channels(input.Dims)
	return &ModelLayout{
		InputName:   input.Name,
		OutputName:  output.Name,
		Order:       order,
		HasBatch:    hasBatchAxis(input.Dims),
		InputShape:  input.Dims,
		OutputShape: output.Dims,
		Channels:    int(channels),
		ChunkSize:   order.chunkSizeFromShape(input.Dims),
		OutputScale: scale,
	}, nil
}

// detectChannelOrder decides NCHW vs NHWC from a fixed input shape. Rank 4
// shapes must have batch size 1; rank 3 shapes are treated as batchless.
func detectChannelOrder(shape []int64) (ChannelOrder, error) {
	switch len(shape) {
	case 3, 4:
	default:
		return "", fmt.Errorf("%w: rank %d", ErrUnsupportedInputShape, len(shape))
	}
	if hasBatchAxis(shape) && shape[0] != 1 {
		return "", fmt.Errorf("%w: batch size %d (only 1 is supported)", ErrUnsupportedInputShape, shape[0])
	}
	for _, order := range []ChannelOrder{OrderNCHW, OrderNHWC} {
		ch, ok := order.channels(shape)
		if !ok || ch != 3 {
			continue
		}
		w, wok := order.width(shape)
		h, hok := order.height(shape)
		if !wok || !hok || w <= 0 || h <= 0 {
			return "", fmt.Errorf("%w: dynamic spatial dimensions %v", ErrUnsupportedInputShape, shape)
		}
		return order, nil
	}
	return "", fmt.Errorf("%w: no 3-channel axis in %v", ErrUnsupportedInputShape, shape)
}

// matchOutput picks the output tensor the runner will read. An output whose
// shape equals the input exactly wins; otherwise the first output with the
// same batch and channel extent whose spatial dimensions are the same integer
// multiple of the input's is used, and that multiple is the scale.
func matchOutput(input ioShape, order ChannelOrder, outputs []ioShape) (ioShape, int, error) {
	for _, out := range outputs {
		if shapesEqual(input.Dims, out.Dims) {
			return out, 1, nil
		}
	}
	inW, _ := order.width(input.Dims)
	inH, _ := order.height(input.Dims)
	inC, _ := order.channels(input.Dims)
	for _, out := range outputs {
		if len(out.Dims) != len(input.Dims) {
			continue
		}
		if hasBatchAxis(out.Dims) && out.Dims[0] != input.Dims[0] {
			continue
		}
		outC, ok := order.channels(out.Dims)
		if !ok || outC != inC {
			continue
		}
		outW, _ := order.width(out.Dims)
		outH, _ := order.height(out.Dims)
		if outW <= 0 || outH <= 0 {
			continue
		}
		if outW%inW != 0 || outH%inH != 0 {
			continue
		}
		if outW/inW != outH/inH {
			continue
		}
		return out, int(outW / inW), nil
	}
	return ioShape{}, 0, fmt.Errorf("%w: input %v", ErrNoSuitableOutput, input.Dims)
}

func shapesEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// layoutFromONNX extracts the tensor interface of a parsed ONNX model.
func layoutFromONNX(om *onnx.Model) (*ModelLayout, error) {
	inputNames, inputShapes := om.Inputs()
	outputNames, outputShapes := om.Outputs()

	inputs := make([]ioShape, len(inputNames))
	for i, name := range inputNames {
		inputs[i] = ioShape{Name: name, Dims: intsToInt64s(inputShapes[i].Dimensions)}
	}
	outputs := make([]ioShape, len(outputNames))
	for i, name := range outputNames {
		outputs[i] = ioShape{Name: name, Dims: intsToInt64s(outputShapes[i].Dimensions)}
	}
	return inspectModel(inputs, outputs)
}

func intsToInt64s(dims []int) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		out[i] = int64(d)
	}
	return out
}

func int64sToInts(dims []int64) []int {
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d)
	}
	return out
}
