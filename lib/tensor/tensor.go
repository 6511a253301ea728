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

// Package tensor provides the dense float32 image tensor used throughout the
// processing pipeline. Tensors are stored contiguously in (channel, height,
// width) order, the layout the tiling engine and the model runners operate on.
package tensor

import "fmt"

// Tensor is a 3-dimensional float32 array in (channel, height, width) layout.
// The zero value is not usable; create tensors with New or FromData.
type Tensor struct {
	data     []float32
	channels int
	height   int
	width    int
}

// New returns a zero-initialized tensor with the given dimensions.
func New(channels, height, width int) *Tensor {
	if channels <= 0 || height <= 0 || width <= 0 {
		panic(fmt.Sprintf("tensor: invalid dimensions (%d, %d, %d)", channels, height, width))
	}
	return &Tensor{
		data:     make([]float32, channels*height*width),
		channels: channels,
		height:   height,
		width:    width,
	}
}

// FromData wraps an existing flat slice as a tensor. The tensor takes
// ownership of the slice.
func FromData(data []float32, channels, height, width int) (*Tensor, error) {
	if len(data) != channels*height*width {
		return nil, fmt.Errorf("tensor: data length %d does not match dimensions (%d, %d, %d)",
			len(data), channels, height, width)
	}
	return &Tensor{data: data, channels: channels, height: height, width: width}, nil
}

// Channels returns the channel count.
func (t *Tensor) Channels() int { return t.channels }

// Height returns the spatial height.
func (t *Tensor) Height() int { return t.height }

// Width returns the spatial width.
func (t *Tensor) Width() int { return t.width }

// Data returns the underlying flat slice in (channel, height, width) order.
func (t *Tensor) Data() []float32 { return t.data }

// Index returns the flat offset of element (c, y, x).
func (t *Tensor) Index(c, y, x int) int {
	return (c*t.height+y)*t.width + x
}

// At returns the element at (c, y, x).
func (t *Tensor) At(c, y, x int) float32 {
	return t.data[(c*t.height+y)*t.width+x]
}

// Set stores v at (c, y, x).
func (t *Tensor) Set(c, y, x int, v float32) {
	t.data[(c*t.height+y)*t.width+x] = v
}

// Mean returns the arithmetic mean over all elements.
func (t *Tensor) Mean() float64 {
	var sum float64
	for _, v := range t.data {
		sum += float64(v)
	}
	return sum / float64(len(t.data))
}

// ReflectPad returns a new tensor padded by padY rows on the top and bottom
// and padX columns on the left and right of every channel. Border content is
// mirrored about the edge pixel without repeating it, so every padded sample
// is real image content rather than synthetic zeros.
func (t *Tensor) ReflectPad(padY, padX int) *Tensor {
	out := New(t.channels, t.height+2*padY, t.width+2*padX)
	for c := 0; c < t.channels; c++ {
		for y := 0; y < out.height; y++ {
			srcY := reflectIndex(y-padY, t.height)
			srcRow := t.data[(c*t.height+srcY)*t.width:]
			dstRow := out.data[(c*out.height+y)*out.width:]
			for x := 0; x < out.width; x++ {
				dstRow[x] = srcRow[reflectIndex(x-padX, t.width)]
			}
		}
	}
	return out
}

// reflectIndex folds an out-of-range coordinate back into [0, n) by mirroring
// about the boundaries, matching numpy's "reflect" mode (the edge sample is
// not repeated).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		return period - i
	}
	return i
}
