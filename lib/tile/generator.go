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

// Package tile splits an image tensor into overlapping, context-padded tiles
// for fixed-input-size model inference and provides the seam-blend weighting
// used to reassemble them without visible tile borders.
//
// A GeneratorBuilder is configured and then finalized exactly once. The
// finalized Generator owns the reflect-padded source tensor and emits
// read-only Chunk views over it; the two-phase split guarantees that
// iteration and seam blending are only reachable after the configuration has
// been validated and the tensor padded.
package tile

import (
	"errors"
	"fmt"
	"iter"

	"github.com/mayjs/NeuraTable/lib/tensor"
)

// Defaults tuned for the nind-denoise reference model.
const (
	DefaultChunkSize    = 440
	DefaultChunkPadding = 60
	DefaultOverlap      = 6
)

var (
	// ErrInvalidPadding reports a chunk padding of at least half the chunk
	// size, which would leave no usable tile area.
	ErrInvalidPadding = errors.New("chunk padding exceeds chunk size")

	// ErrInvalidOverlap reports an overlap larger than half the usable chunk
	// area, which would make a tile overlap more than its two neighbors.
	ErrInvalidOverlap = errors.New("overlap exceeds usable chunk area")

	// ErrBuilderConsumed reports reuse of a builder after Finalize.
	ErrBuilderConsumed = errors.New("chunk generator builder already finalized")
)

// Coords is a tile position in the original (unpadded) image coordinate space.
type Coords struct {
	X int
	Y int
}

// GeneratorBuilder is the mutable configuration phase of a chunk generator.
// Finalize consumes the builder; it cannot be reused afterwards.
type GeneratorBuilder struct {
	image        *tensor.Tensor
	chunkSize    int
	overlap      int
	chunkPadding int
}

// NewGeneratorFromTensor starts a builder over the given image tensor in
// (channel, height, width) layout. The builder takes ownership of the tensor.
func NewGeneratorFromTensor(image *tensor.Tensor) *GeneratorBuilder {
	return &GeneratorBuilder{
		image:        image,
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultOverlap,
		chunkPadding: DefaultChunkPadding,
	}
}

// SetChunkSize sets the square tile edge length in pixels.
func (b *GeneratorBuilder) SetChunkSize(chunkSize int) { b.chunkSize = chunkSize }

// WithChunkSize sets the square tile edge length and returns the builder.
func (b *GeneratorBuilder) WithChunkSize(chunkSize int) *GeneratorBuilder {
	b.SetChunkSize(chunkSize)
	return b
}

// SetChunkPadding sets the context border included around each tile's usable
// area.
func (b *GeneratorBuilder) SetChunkPadding(chunkPadding int) { b.chunkPadding = chunkPadding }

// WithChunkPadding sets the context border and returns the builder.
func (b *GeneratorBuilder) WithChunkPadding(chunkPadding int) *GeneratorBuilder {
	b.SetChunkPadding(chunkPadding)
	return b
}

// SetOverlap sets the shared band width between adjacent tiles' usable areas.
func (b *GeneratorBuilder) SetOverlap(overlap int) { b.overlap = overlap }

// WithOverlap sets the overlap and returns the builder.
func (b *GeneratorBuilder) WithOverlap(overlap int) *GeneratorBuilder {
	b.SetOverlap(overlap)
	return b
}

// Finalize validates the configuration, pads the tensor and returns the
// iterable generator. The builder is consumed: calling Finalize again fails.
func (b *GeneratorBuilder) Finalize() (*Generator, error) {
	if b.image == nil {
		return nil, ErrBuilderConsumed
	}
	if 2*b.chunkPadding >= b.chunkSize {
		return nil, fmt.Errorf("%w: padding %d, chunk size %d", ErrInvalidPadding, b.chunkPadding, b.chunkSize)
	}
	usable := b.chunkSize - 2*b.chunkPadding
	if 2*b.overlap > usable {
		return nil, fmt.Errorf("%w: overlap %d, usable area %d", ErrInvalidOverlap, b.overlap, usable)
	}

	img := b.image
	b.image = nil

	// Pad by a full chunk size on both spatial axes so even tiles at the
	// image border see real mirrored context on every side.
	padding := b.chunkSize
	g := &Generator{
		image:          img.ReflectPad(padding, padding),
		chunkSize:      b.chunkSize,
		overlap:        b.overlap,
		chunkPadding:   b.chunkPadding,
		originalWidth:  img.Width(),
		originalHeight: img.Height(),
		inputPaddingX:  padding,
		inputPaddingY:  padding,
	}
	return g, nil
}

// Generator is the finalized, iterable form of a chunk generator. It owns the
// padded source tensor, which is read-only for the duration of iteration.
type Generator struct {
	image          *tensor.Tensor
	chunkSize      int
	overlap        int
	chunkPadding   int
	originalWidth  int
	originalHeight int
	inputPaddingX  int
	inputPaddingY  int
}

// ChunkSize returns the square tile edge length.
func (g *Generator) ChunkSize() int { return g.chunkSize }

// Overlap returns the shared band width between adjacent tiles.
func (g *Generator) Overlap() int { return g.overlap }

// ChunkPadding returns the context border width of each tile.
func (g *Generator) ChunkPadding() int { return g.chunkPadding }

// OriginalResolution returns the unpadded source width and height.
func (g *Generator) OriginalResolution() (width, height int) {
	return g.originalWidth, g.originalHeight
}

// UsefulChunkArea returns the non-padding sub-rectangle of any chunk as an
// inclusive start and exclusive end coordinate on both axes.
func (g *Generator) UsefulChunkArea() (start, end Coords) {
	start = Coords{X: g.chunkPadding, Y: g.chunkPadding}
	end = Coords{X: g.chunkSize - g.chunkPadding, Y: g.chunkSize - g.chunkPadding}
	return start, end
}

// step is the grid spacing between tile origins in original coordinates.
func (g *Generator) step() int {
	return g.chunkSize - 2*g.chunkPadding - g.overlap
}

// Chunks returns a raster-scan sequence of tiles covering the whole original
// image. The sequence is lazy and restartable; ranging over it again starts a
// fresh scan over the same finalized state.
//
// A row or column is only started while it still contributes pixels beyond
// its predecessor's coverage: a tile at offset x covers up to x+usable, so
// the tile at x+step adds nothing once x+step+overlap reaches the original
// width. Emitting such a sliver tile would also break the seam weighting,
// because its predecessor sees no trailing neighbor and keeps full weight
// where the sliver would add another half.
func (g *Generator) Chunks() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		step := g.step()
		x, y := 0, 0
		for {
			chunk := Chunk{
				gen:     g,
				Offset:  Coords{X: x, Y: y},
				originX: x + g.inputPaddingX - g.chunkPadding,
				originY: y + g.inputPaddingY - g.chunkPadding,
			}
			if !yield(chunk) {
				return
			}
			x += step
			if x < g.originalWidth-g.overlap {
				continue
			}
			x = 0
			y += step
			if y >= g.originalHeight-g.overlap {
				return
			}
		}
	}
}

// NumChunks returns the total number of tiles Chunks will emit.
func (g *Generator) NumChunks() int {
	step := g.step()
	return countOffsets(g.originalWidth, g.overlap, step) *
		countOffsets(g.originalHeight, g.overlap, step)
}

// countOffsets counts the raster offsets 0, step, 2*step, ... that Chunks
// visits along one axis of the given extent.
func countOffsets(dim, overlap, step int) int {
	n := (dim - overlap + step - 1) / step
	if n < 1 {
		return 1
	}
	return n
}

// ScaleOverlap applies the seam-blend weighting to a tile's usable sub-region
// before it is accumulated into the output. Each overlap band that is shared
// with a neighboring tile is halved; summing the two half-weight
// contributions restores full weight and hides the seam. Bands that touch the
// true image boundary have no neighbor and keep full weight.
func (g *Generator) ScaleOverlap(offset Coords, usable *tensor.Tensor) {
	w, h := usable.Width(), usable.Height()
	usableSize := g.chunkSize - 2*g.chunkPadding

	if offset.X > 0 {
		scaleColumns(usable, 0, g.overlap)
	}
	if offset.Y > 0 {
		scaleRows(usable, 0, g.overlap)
	}
	if offset.X+usableSize < g.originalWidth {
		scaleColumns(usable, w-g.overlap, w)
	}
	if offset.Y+usableSize < g.originalHeight {
		scaleRows(usable, h-g.overlap, h)
	}
}

func scaleColumns(t *tensor.Tensor, x0, x1 int) {
	for c := 0; c < t.Channels(); c++ {
		for y := 0; y < t.Height(); y++ {
			for x := x0; x < x1; x++ {
				t.Set(c, y, x, t.At(c, y, x)*0.5)
			}
		}
	}
}

func scaleRows(t *tensor.Tensor, y0, y1 int) {
	for c := 0; c < t.Channels(); c++ {
		for y := y0; y < y1; y++ {
			for x := 0; x < t.Width(); x++ {
				t.Set(c, y, x, t.At(c, y, x)*0.5)
			}
		}
	}
}
