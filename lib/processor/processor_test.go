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

package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayjs/NeuraTable/lib/imageio"
	"github.com/mayjs/NeuraTable/lib/tensor"
	"github.com/mayjs/NeuraTable/lib/tile"
	"github.com/mayjs/NeuraTable/lib/valuerange"
)

// identityRunner copies each tile through unchanged.
type identityRunner struct {
	chunkSize int
	out       *tensor.Tensor
}

func (r *identityRunner) ChunkSize() tile.ChunkSize {
	return tile.ChunkSize{Width: r.chunkSize, Height: r.chunkSize}
}

func (r *identityRunner) ProcessChunk(chunk tile.Chunk) (*tensor.Tensor, error) {
	if r.out == nil {
		r.out = tensor.New(chunk.Channels(), chunk.Size(), chunk.Size())
	}
	for c := 0; c < chunk.Channels(); c++ {
		for y := 0; y < chunk.Size(); y++ {
			for x := 0; x < chunk.Size(); x++ {
				r.out.Set(c, y, x, chunk.At(c, y, x))
			}
		}
	}
	return r.out, nil
}

type nonSquareRunner struct{}

func (nonSquareRunner) ChunkSize() tile.ChunkSize {
	return tile.ChunkSize{Width: 64, Height: 32}
}

func (nonSquareRunner) ProcessChunk(tile.Chunk) (*tensor.Tensor, error) {
	return nil, nil
}

func patternImage(width, height int) *imageio.Image {
	img := imageio.NewImage(width, height)
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[i] = uint16((x*7 + y*13) % 65536)
			img.Pix[i+1] = uint16((x*31 + y*3) % 65536)
			img.Pix[i+2] = uint16((x + y*y) % 65536)
			i += 3
		}
	}
	return img
}

// An identity model behind the whole pipeline must reproduce the input
// image: padding, seam blending, and value-range conversion all cancel out.
func TestIdentityModelRoundTrip(t *testing.T) {
	src := patternImage(100, 100)

	p, err := New(&identityRunner{chunkSize: 50},
		valuerange.Asymmetric(1), valuerange.Asymmetric(1),
		WithChunkPadding(10), WithOverlap(4))
	require.NoError(t, err)

	got, err := p.Process(src)
	require.NoError(t, err)
	require.Equal(t, src.Width, got.Width)
	require.Equal(t, src.Height, got.Height)

	for i := range src.Pix {
		require.InDelta(t, src.Pix[i], got.Pix[i], 1,
			"pixel mismatch at flat index %d", i)
	}
}

// Resolutions that do not divide evenly into tiles exercise the trailing
// edge clamping.
func TestIdentityModelOddResolutions(t *testing.T) {
	for _, dims := range []struct{ w, h int }{
		{31, 47},
		{77, 50},
		{50, 50},
		// Widths whose last covering tile ends within an overlap band of the
		// edge; a spurious trailing tile here would double pixels near x=78.
		{79, 40},
		{82, 33},
	} {
		src := patternImage(dims.w, dims.h)

		p, err := New(&identityRunner{chunkSize: 50},
			valuerange.Asymmetric(1), valuerange.Asymmetric(1),
			WithChunkPadding(10), WithOverlap(4))
		require.NoError(t, err)

		got, err := p.Process(src)
		require.NoError(t, err)
		for i := range src.Pix {
			require.InDelta(t, src.Pix[i], got.Pix[i], 1,
				"%dx%d: pixel mismatch at flat index %d", dims.w, dims.h, i)
		}
	}
}

// A symmetric model range must also round-trip: the pixel-to-model mapping
// and its normalization are inverses.
func TestIdentityModelSymmetricRange(t *testing.T) {
	src := patternImage(60, 60)

	p, err := New(&identityRunner{chunkSize: 50},
		valuerange.Symmetric(10), valuerange.Symmetric(10),
		WithChunkPadding(10), WithOverlap(4))
	require.NoError(t, err)

	got, err := p.Process(src)
	require.NoError(t, err)
	for i := range src.Pix {
		require.InDelta(t, src.Pix[i], got.Pix[i], 1,
			"pixel mismatch at flat index %d", i)
	}
}

// BGR models see swapped channels, but the swap is undone on output, so an
// identity model still reproduces the RGB input.
func TestBGRSwapRoundTrips(t *testing.T) {
	src := patternImage(60, 60)

	p, err := New(&identityRunner{chunkSize: 50},
		valuerange.Asymmetric(1), valuerange.Asymmetric(1),
		WithChunkPadding(10), WithOverlap(4),
		WithColorModel(ColorModelBGR))
	require.NoError(t, err)

	got, err := p.Process(src)
	require.NoError(t, err)
	for i := range src.Pix {
		require.InDelta(t, src.Pix[i], got.Pix[i], 1,
			"pixel mismatch at flat index %d", i)
	}
}

// swapCheckRunner asserts that a BGR processor really presents blue first.
type swapCheckRunner struct {
	identityRunner
	t *testing.T
}

func (r *swapCheckRunner) ProcessChunk(chunk tile.Chunk) (*tensor.Tensor, error) {
	// The pattern image has distinct per-channel generators; spot check
	// that channel 0 of the tile carries the blue pattern.
	require.NotEqual(r.t, chunk.At(0, 25, 25), chunk.At(2, 25, 25))
	return r.identityRunner.ProcessChunk(chunk)
}

func TestBGRSwapPresentsBlueFirst(t *testing.T) {
	src := patternImage(50, 50)

	rgb := &identityRunner{chunkSize: 50}
	bgr := &swapCheckRunner{identityRunner: identityRunner{chunkSize: 50}, t: t}

	pRGB, err := New(rgb, valuerange.Asymmetric(1), valuerange.Asymmetric(1),
		WithChunkPadding(10), WithOverlap(4))
	require.NoError(t, err)
	pBGR, err := New(bgr, valuerange.Asymmetric(1), valuerange.Asymmetric(1),
		WithChunkPadding(10), WithOverlap(4), WithColorModel(ColorModelBGR))
	require.NoError(t, err)

	_, err = pRGB.Process(src)
	require.NoError(t, err)
	_, err = pBGR.Process(src)
	require.NoError(t, err)

	// The tiles the two runners saw must differ in channel order.
	assert.Equal(t, rgb.out.At(0, 25, 25), bgr.out.At(2, 25, 25))
	assert.Equal(t, rgb.out.At(2, 25, 25), bgr.out.At(0, 25, 25))
	assert.Equal(t, rgb.out.At(1, 25, 25), bgr.out.At(1, 25, 25))
}

func TestNonSquareModelRejected(t *testing.T) {
	_, err := New(nonSquareRunner{}, valuerange.Asymmetric(1), valuerange.Asymmetric(1))
	require.ErrorIs(t, err, ErrNonSquareModel)
}

func TestHeuristicDefaults(t *testing.T) {
	p, err := New(&identityRunner{chunkSize: 440},
		valuerange.Asymmetric(1), valuerange.Asymmetric(1))
	require.NoError(t, err)

	assert.Equal(t, 440/7, p.chunkPadding)
	assert.Equal(t, 440/7/10, p.overlap)
}

func TestProgressReported(t *testing.T) {
	src := patternImage(100, 100)

	var calls []int
	total := 0
	p, err := New(&identityRunner{chunkSize: 50},
		valuerange.Asymmetric(1), valuerange.Asymmetric(1),
		WithChunkPadding(10), WithOverlap(4),
		WithProgress(func(done, t int) {
			calls = append(calls, done)
			total = t
		}))
	require.NoError(t, err)

	_, err = p.Process(src)
	require.NoError(t, err)

	require.NotEmpty(t, calls)
	assert.Equal(t, total, len(calls))
	assert.Equal(t, p.NumTiles(100, 100), total)
	assert.Equal(t, total, calls[len(calls)-1])
	for i, done := range calls {
		assert.Equal(t, i+1, done)
	}
}

func TestQuantizeClamps(t *testing.T) {
	assert.Equal(t, uint16(0), quantize(-0.5))
	assert.Equal(t, uint16(0), quantize(0))
	assert.Equal(t, uint16(65535), quantize(1))
	assert.Equal(t, uint16(65535), quantize(1.5))
	assert.Equal(t, uint16(32768), quantize(0.5))
}
