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

// Package processor turns a tile-level model runner into a whole-image
// operation: it converts pixels into the model's value range, tiles the
// image, runs every tile, blends the seams, and converts the accumulated
// result back into 16-bit pixels.
package processor

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mayjs/NeuraTable/lib/imageio"
	"github.com/mayjs/NeuraTable/lib/tensor"
	"github.com/mayjs/NeuraTable/lib/tile"
	"github.com/mayjs/NeuraTable/lib/valuerange"
)

// ErrNonSquareModel is returned for models whose input width and height
// differ; the tiling geometry only supports square tiles.
var ErrNonSquareModel = errors.New("model input must be square")

// ColorModel is the channel order a model was trained with. Images are
// always RGB in memory; BGR models get their first and last channels swapped
// on the way in and out.
type ColorModel string

const (
	ColorModelRGB ColorModel = "rgb"
	ColorModelBGR ColorModel = "bgr"
)

// ChunkRunner executes a model on one tile. Satisfied by runner.Runner and
// by test fakes.
type ChunkRunner interface {
	ChunkSize() tile.ChunkSize
	ProcessChunk(chunk tile.Chunk) (*tensor.Tensor, error)
}

const imageChannels = 3

// Options configure a Processor beyond its required collaborators.
type Options struct {
	// ChunkPadding overrides the context margin heuristic. Negative means
	// auto.
	ChunkPadding int

	// Overlap overrides the seam overlap heuristic. Negative means auto.
	Overlap int

	ColorModel ColorModel
	Logger     *zap.Logger

	// Progress, when set, is called after each tile with the number of
	// tiles finished and the total.
	Progress func(done, total int)
}

// Option mutates Options.
type Option func(*Options)

// WithChunkPadding fixes the context margin instead of deriving it from the
// model's tile size.
func WithChunkPadding(padding int) Option {
	return func(o *Options) { o.ChunkPadding = padding }
}

// WithOverlap fixes the seam overlap instead of deriving it from the padding.
func WithOverlap(overlap int) Option {
	return func(o *Options) { o.Overlap = overlap }
}

// WithColorModel declares the channel order the model was trained with.
func WithColorModel(cm ColorModel) Option {
	return func(o *Options) { o.ColorModel = cm }
}

// WithLogger sets the logger. Without it the processor is silent.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithProgress registers a per-tile progress callback.
func WithProgress(fn func(done, total int)) Option {
	return func(o *Options) { o.Progress = fn }
}

// Processor applies one model to whole images.
type Processor struct {
	runner      ChunkRunner
	inputRange  valuerange.ValueRange
	outputRange valuerange.ValueRange

	chunkSize    int
	chunkPadding int
	overlap      int
	swapChannels bool

	logger   *zap.Logger
	progress func(done, total int)
}

// New builds a processor around a tile runner. The context margin defaults
// to a seventh of the tile edge and the seam overlap to a tenth of the
// margin; both can be overridden when a model needs more or less context.
func New(r ChunkRunner, inputRange, outputRange valuerange.ValueRange, opts ...Option) (*Processor, error) {
	o := Options{
		ChunkPadding: -1,
		Overlap:      -1,
		ColorModel:   ColorModelRGB,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cs := r.ChunkSize()
	if cs.Width != cs.Height {
		return nil, fmt.Errorf("%w: got %dx%d", ErrNonSquareModel, cs.Width, cs.Height)
	}

	padding := o.ChunkPadding
	if padding < 0 {
		padding = cs.MinDim() / 7
	}
	overlap := o.Overlap
	if overlap < 0 {
		overlap = padding / 10
	}

	return &Processor{
		runner:       r,
		inputRange:   inputRange,
		outputRange:  outputRange,
		chunkSize:    cs.Width,
		chunkPadding: padding,
		overlap:      overlap,
		swapChannels: o.ColorModel == ColorModelBGR,
		logger:       logger,
		progress:     o.Progress,
	}, nil
}

// NumTiles reports how many tiles Process will run for an image of the given
// resolution, for progress reporting.
func (p *Processor) NumTiles(width, height int) int {
	step := p.chunkSize - 2*p.chunkPadding - p.overlap
	if step <= 0 || width <= 0 || height <= 0 {
		return 0
	}
	return tileAxisCount(width, p.overlap, step) * tileAxisCount(height, p.overlap, step)
}

// tileAxisCount mirrors the tile generator's raster scan: a new tile starts
// at offset n*step only while that offset leaves more than an overlap band of
// the axis uncovered.
func tileAxisCount(dim, overlap, step int) int {
	n := (dim - overlap + step - 1) / step
	if n < 1 {
		return 1
	}
	return n
}

// Process runs the model over every tile of img and returns the processed
// image at the same resolution.
func (p *Processor) Process(img *imageio.Image) (*imageio.Image, error) {
	start := time.Now()

	gen, err := tile.NewGeneratorFromTensor(p.imageToTensor(img)).
		WithChunkSize(p.chunkSize).
		WithChunkPadding(p.chunkPadding).
		WithOverlap(p.overlap).
		Finalize()
	if err != nil {
		return nil, fmt.Errorf("building tile generator: %w", err)
	}

	total := gen.NumChunks()
	p.logger.Info("processing image",
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Int("tiles", total),
		zap.Int("chunk_size", p.chunkSize),
		zap.Int("chunk_padding", p.chunkPadding),
		zap.Int("overlap", p.overlap))

	acc := tensor.New(imageChannels, img.Height, img.Width)
	usableBuf := make([]float32, imageChannels*p.chunkSize*p.chunkSize)
	done := 0
	for chunk := range gen.Chunks() {
		if err := p.processTile(gen, chunk, acc, usableBuf); err != nil {
			return nil, fmt.Errorf("tile at (%d,%d): %w", chunk.Offset.X, chunk.Offset.Y, err)
		}
		done++
		tilesProcessedOps.Inc()
		if p.progress != nil {
			p.progress(done, total)
		}
	}

	out := p.tensorToImage(acc)

	imagesProcessedOps.Inc()
	imageDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("image processed",
		zap.Int("tiles", done),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// processTile runs one tile, blends its seams, and adds its usable area into
// the accumulator.
func (p *Processor) processTile(gen *tile.Generator, chunk tile.Chunk, acc *tensor.Tensor, usableBuf []float32) error {
	result, err := p.runner.ProcessChunk(chunk)
	if err != nil {
		return err
	}

	w, h := chunk.UsableRange()
	usable, err := tensor.FromData(usableBuf[:imageChannels*h*w], imageChannels, h, w)
	if err != nil {
		return err
	}
	// The usable area starts after the context margin inside the tile.
	pad := gen.ChunkPadding()
	for c := 0; c < imageChannels; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				usable.Set(c, y, x, result.At(c, pad+y, pad+x))
			}
		}
	}

	gen.ScaleOverlap(chunk.Offset, usable)

	for c := 0; c < imageChannels; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				idx := acc.Index(c, chunk.Offset.Y+y, chunk.Offset.X+x)
				acc.Data()[idx] += usable.At(c, y, x)
			}
		}
	}
	return nil
}

// imageToTensor converts 16-bit RGB pixels into the model's value range in
// CHW order. The BGR swap for models trained on swapped channels is fused
// into the copy.
func (p *Processor) imageToTensor(img *imageio.Image) *tensor.Tensor {
	t := tensor.New(imageChannels, img.Height, img.Width)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			base := (y*img.Width + x) * imageChannels
			for c := 0; c < imageChannels; c++ {
				t.Set(p.channel(c), y, x, p.inputRange.PixelValueToModel(img.Pix[base+c]))
			}
		}
	}
	return t
}

// tensorToImage normalizes accumulated model values back to 16-bit pixels,
// undoing any channel swap.
func (p *Processor) tensorToImage(acc *tensor.Tensor) *imageio.Image {
	img := imageio.NewImage(acc.Width(), acc.Height())
	for y := 0; y < acc.Height(); y++ {
		for x := 0; x < acc.Width(); x++ {
			base := (y*acc.Width() + x) * imageChannels
			for c := 0; c < imageChannels; c++ {
				v := p.outputRange.NormalizeModelValue(acc.At(p.channel(c), y, x))
				img.Pix[base+c] = quantize(v)
			}
		}
	}
	return img
}

// channel maps an RGB channel index to the model's channel index.
func (p *Processor) channel(c int) int {
	if p.swapChannels && c != 1 {
		return 2 - c
	}
	return c
}

// quantize maps a normalized [0,1] value to uint16, clamping out-of-range
// model output.
func quantize(v float32) uint16 {
	scaled := v * 65535
	if scaled <= 0 {
		return 0
	}
	if scaled >= 65535 {
		return 65535
	}
	return uint16(scaled + 0.5)
}
