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

// Package runner loads a fixed-shape ONNX image model and executes it tile by
// tile. It detects the model's tensor layout (NCHW or NHWC, with or without a
// batch axis) and output scale, prefers an accelerated GoMLX engine, and
// falls back to ONNX Runtime on CPU when no accelerator is usable.
package runner

import (
	"fmt"
	"os"

	"github.com/gomlx/onnx-gomlx/onnx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mayjs/NeuraTable/lib/tensor"
	"github.com/mayjs/NeuraTable/lib/tile"
)

// Options configure model loading.
type Options struct {
	// ForceCPU skips accelerator detection and always uses the CPU path.
	ForceCPU bool

	// NumThreads limits CPU inference threads. Zero leaves the runtime
	// default.
	NumThreads int

	Logger *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithForceCPU disables the accelerated engine.
func WithForceCPU() Option {
	return func(o *Options) { o.ForceCPU = true }
}

// WithNumThreads limits CPU inference threads.
func WithNumThreads(n int) Option {
	return func(o *Options) { o.NumThreads = n }
}

// WithLogger sets the logger. Without it the runner is silent.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// Runner executes one loaded model over image tiles. It is not safe for
// concurrent use; tiles are processed sequentially over persistent buffers.
type Runner struct {
	layout  *ModelLayout
	backend Backend
	logger  *zap.Logger

	// chw holds the model output in CHW order at output resolution,
	// reused across tiles.
	chw []float32

	// result is the tile-resolution output returned to callers, reused
	// across tiles.
	result *tensor.Tensor
}

// New loads the ONNX model at path. It is a convenience wrapper around
// NewFromBytes for callers holding a file path.
func New(path string, opts ...Option) (*Runner, error) {
	modelBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ONNX model: %w", err)
	}
	return NewFromBytes(modelBytes, opts...)
}

// NewFromBytes loads a serialized ONNX model and binds it to the best
// available execution backend. Unless ForceCPU is set, an accelerated GoMLX
// engine is tried first and CPU inference through ONNX Runtime is the
// fallback; the returned error combines both failures when neither works.
// The model never needs to touch the filesystem, so callers can feed models
// from embedded data or a download stream.
func NewFromBytes(modelBytes []byte, opts ...Option) (*Runner, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	om, err := onnx.Parse(modelBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing ONNX model: %w", err)
	}
	layout, err := layoutFromONNX(om)
	if err != nil {
		return nil, fmt.Errorf("inspecting model: %w", err)
	}
	logger.Debug("model layout detected",
		zap.String("input", layout.InputName),
		zap.String("output", layout.OutputName),
		zap.String("order", string(layout.Order)),
		zap.Int("output_scale", layout.OutputScale),
		zap.Int("chunk_width", layout.ChunkSize.Width),
		zap.Int("chunk_height", layout.ChunkSize.Height))

	backend, err := selectBackend(modelBytes, om, layout, &o, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("model loaded",
		zap.Int("model_bytes", len(modelBytes)),
		zap.String("backend", backend.Name()))

	return NewWithBackend(layout, backend, logger), nil
}

// NewWithBackend wires a runner to an already constructed backend. Used by
// New and by tests that substitute a fake backend.
func NewWithBackend(layout *ModelLayout, backend Backend, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		layout:  layout,
		backend: backend,
		logger:  logger,
	}
}

// selectBackend tries the accelerated engine first and falls back to CPU.
// The fallback is silent apart from a log line so that machines without
// accelerators work out of the box.
func selectBackend(modelBytes []byte, om *onnx.Model, layout *ModelLayout, o *Options, logger *zap.Logger) (Backend, error) {
	if o.ForceCPU {
		return newORTBackend(modelBytes, layout, o.NumThreads)
	}

	gpuBackend, gpuErr := newXLABackend(om, layout, "xla")
	if gpuErr == nil {
		return gpuBackend, nil
	}
	logger.Warn("accelerated engine unavailable, falling back to CPU", zap.Error(gpuErr))
	backendFallbackOps.WithLabelValues("gomlx-xla", "onnxruntime").Inc()

	cpuBackend, cpuErr := newORTBackend(modelBytes, layout, o.NumThreads)
	if cpuErr == nil {
		return cpuBackend, nil
	}
	return nil, multierr.Append(
		fmt.Errorf("accelerated engine: %w", gpuErr),
		fmt.Errorf("cpu engine: %w", cpuErr),
	)
}

// ChunkSize returns the spatial extent of the model input.
func (r *Runner) ChunkSize() tile.ChunkSize { return r.layout.ChunkSize }

// OutputScale returns the integer upscaling factor of the model.
func (r *Runner) OutputScale() int { return r.layout.OutputScale }

// Channels returns the model's channel count.
func (r *Runner) Channels() int { return r.layout.Channels }

// Order returns the model's channel order.
func (r *Runner) Order() ChannelOrder { return r.layout.Order }

// BackendName identifies the engine executing the model.
func (r *Runner) BackendName() string { return r.backend.Name() }

// ProcessChunk runs the model on one tile and returns the output at tile
// resolution in CHW order. Upscaling models are reduced back by block
// averaging so the tiling geometry stays valid. The returned tensor is reused
// and only valid until the next call.
func (r *Runner) ProcessChunk(chunk tile.Chunk) (*tensor.Tensor, error) {
	edge := chunk.Size()
	cs := r.layout.ChunkSize
	if edge != cs.Width || edge != cs.Height {
		return nil, fmt.Errorf("tile edge %d does not match model input %dx%d", edge, cs.Width, cs.Height)
	}
	channels := r.layout.Channels
	if chunk.Channels() != channels {
		return nil, fmt.Errorf("tile has %d channels, model expects %d", chunk.Channels(), channels)
	}

	r.pack(chunk)
	flat, err := r.backend.Run()
	if err != nil {
		return nil, err
	}
	tileInferenceOps.WithLabelValues(r.backend.Name()).Inc()

	scale := r.layout.OutputScale
	outW, outH := cs.Width*scale, cs.Height*scale
	chw := r.toCHW(flat, channels, outH, outW)

	if r.result == nil {
		r.result = tensor.New(channels, cs.Height, cs.Width)
	}
	if scale == 1 {
		copy(r.result.Data(), chw)
		return r.result, nil
	}
	blockAverage(chw, r.result, scale)
	return r.result, nil
}

// pack copies the tile into the backend scratch buffer in the model's
// layout. The NHWC permutation is fused into the copy.
func (r *Runner) pack(chunk tile.Chunk) {
	scratch := r.backend.Scratch()
	edge := chunk.Size()
	channels := r.layout.Channels

	if r.layout.Order == OrderNHWC {
		i := 0
		for y := 0; y < edge; y++ {
			for x := 0; x < edge; x++ {
				for c := 0; c < channels; c++ {
					scratch[i] = chunk.At(c, y, x)
					i++
				}
			}
		}
		return
	}

	i := 0
	for c := 0; c < channels; c++ {
		for y := 0; y < edge; y++ {
			for x := 0; x < edge; x++ {
				scratch[i] = chunk.At(c, y, x)
				i++
			}
		}
	}
}

// toCHW reinterprets the flat model output as CHW, permuting when the model
// emits NHWC.
func (r *Runner) toCHW(flat []float32, channels, height, width int) []float32 {
	if r.layout.Order == OrderNCHW {
		return flat
	}
	if r.chw == nil {
		r.chw = make([]float32, len(flat))
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := (y*width + x) * channels
			for c := 0; c < channels; c++ {
				r.chw[(c*height+y)*width+x] = flat[base+c]
			}
		}
	}
	return r.chw
}

// blockAverage reduces a CHW buffer at scale times the destination
// resolution by averaging each scale-by-scale block.
func blockAverage(src []float32, dst *tensor.Tensor, scale int) {
	channels, height, width := dst.Channels(), dst.Height(), dst.Width()
	srcW := width * scale
	srcH := height * scale
	norm := float32(scale * scale)
	for c := 0; c < channels; c++ {
		plane := src[c*srcH*srcW:]
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				var sum float32
				for dy := 0; dy < scale; dy++ {
					row := plane[(y*scale+dy)*srcW+x*scale:]
					for dx := 0; dx < scale; dx++ {
						sum += row[dx]
					}
				}
				dst.Set(c, y, x, sum/norm)
			}
		}
	}
}

// Close releases the backend.
func (r *Runner) Close() error {
	if r.backend == nil {
		return nil
	}
	err := r.backend.Close()
	r.backend = nil
	return err
}
