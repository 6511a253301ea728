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

package tile

// Chunk is a read-only square window into a finalized generator's padded
// tensor, tagged with its position in the original image. Chunks borrow the
// generator's tensor and are only valid while the generator is alive.
type Chunk struct {
	gen *Generator

	// Offset is the position of this tile's usable area in original image
	// coordinates.
	Offset Coords

	originX int
	originY int
}

// Size returns the square tile edge length.
func (c Chunk) Size() int { return c.gen.chunkSize }

// Channels returns the channel count of the underlying tensor.
func (c Chunk) Channels() int { return c.gen.image.Channels() }

// At returns the sample at (channel, y, x) in tile-local coordinates.
func (c Chunk) At(ch, y, x int) float32 {
	return c.gen.image.At(ch, c.originY+y, c.originX+x)
}

// Generator returns the finalized generator this chunk was emitted from.
func (c Chunk) Generator() *Generator { return c.gen }

// UsableRange returns the width and height of the output sub-region to keep
// from this tile after inference. The nominal usable area is clamped to the
// remaining original resolution so trailing-edge tiles do not spill past the
// true image bounds.
func (c Chunk) UsableRange() (width, height int) {
	usable := c.gen.chunkSize - 2*c.gen.chunkPadding
	width = min(usable, c.gen.originalWidth-c.Offset.X)
	height = min(usable, c.gen.originalHeight-c.Offset.Y)
	return width, height
}
