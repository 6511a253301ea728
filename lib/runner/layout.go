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
	"github.com/mayjs/NeuraTable/lib/tile"
)

// ChannelOrder identifies where the color-channel axis sits in a model's
// tensor layout.
type ChannelOrder string

const (
	// OrderNCHW is (batch, channel, height, width), the pipeline's native
	// processing layout.
	OrderNCHW ChannelOrder = "nchw"

	// OrderNHWC is (batch, height, width, channel); inputs and outputs are
	// permuted around execution.
	OrderNHWC ChannelOrder = "nhwc"
)

// widthIndex returns the width axis position, with or without a batch axis.
func (o ChannelOrder) widthIndex(hasBatch bool) int {
	idx := 3
	if o == OrderNHWC {
		idx = 2
	}
	if !hasBatch {
		idx--
	}
	return idx
}

// heightIndex returns the height axis position.
func (o ChannelOrder) heightIndex(hasBatch bool) int {
	idx := 2
	if o == OrderNHWC {
		idx = 1
	}
	if !hasBatch {
		idx--
	}
	return idx
}

// channelIndex returns the channel axis position.
func (o ChannelOrder) channelIndex(hasBatch bool) int {
	idx := 1
	if o == OrderNHWC {
		idx = 3
	}
	if !hasBatch {
		idx--
	}
	return idx
}

func hasBatchAxis(shape []int64) bool { return len(shape) == 4 }

func (o ChannelOrder) width(shape []int64) (int64, bool) {
	return dimAt(shape, o.widthIndex(hasBatchAxis(shape)))
}

func (o ChannelOrder) height(shape []int64) (int64, bool) {
	return dimAt(shape, o.heightIndex(hasBatchAxis(shape)))
}

func (o ChannelOrder) channels(shape []int64) (int64, bool) {
	return dimAt(shape, o.channelIndex(hasBatchAxis(shape)))
}

// batchSize returns the batch dimension; the second result is false for
// rank-3 shapes that carry no batch axis.
func (o ChannelOrder) batchSize(shape []int64) (int64, bool) {
	if !hasBatchAxis(shape) {
		return 0, false
	}
	return dimAt(shape, 0)
}

func dimAt(shape []int64, idx int) (int64, bool) {
	if idx < 0 || idx >= len(shape) {
		return 0, false
	}
	return shape[idx], true
}

// chunkSizeFromShape reads the spatial extent of a model input shape. Width
// and height are tracked independently so non-square models work.
func (o ChannelOrder) chunkSizeFromShape(shape []int64) tile.ChunkSize {
	w, _ := o.width(shape)
	h, _ := o.height(shape)
	return tile.ChunkSize{Width: int(w), Height: int(h)}
}

// scratchDims returns the dimensions of a backend scratch buffer for one
// batch in this layout.
func (o ChannelOrder) scratchDims(cs tile.ChunkSize, channels int) []int {
	if o == OrderNHWC {
		return []int{cs.Height, cs.Width, channels}
	}
	return []int{channels, cs.Height, cs.Width}
}
