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
	"fmt"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	mlctx "github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/onnx-gomlx/onnx"

	// Registers the pure Go "go" engine so engine construction works on
	// machines without PJRT plugins.
	_ "github.com/gomlx/gomlx/backends/simplego"
)

// xlaBackend runs the model through GoMLX on an accelerated engine. The
// inference graph is compiled once at construction and re-executed per tile.
type xlaBackend struct {
	engineType  string
	engine      backends.Backend
	exec        *mlctx.Exec
	layout      *ModelLayout
	outputIndex int
	scratch     []float32
}

// newXLABackend compiles the ONNX model for the given GoMLX engine type
// ("xla" for PJRT accelerators, "go" for the pure Go engine).
func newXLABackend(om *onnx.Model, layout *ModelLayout, engineType string) (*xlaBackend, error) {
	engine, err := safeNewEngine(engineType)
	if err != nil {
		return nil, err
	}

	mlCtx := mlctx.New()
	if err := om.VariablesToContext(mlCtx); err != nil {
		return nil, fmt.Errorf("loading model variables: %w", err)
	}

	outputNames, _ := om.Outputs()
	outputIndex := 0
	for i, name := range outputNames {
		if name == layout.OutputName {
			outputIndex = i
			break
		}
	}

	inputName := layout.InputName
	exec, err := safeNewExec(engine, mlCtx, func(ctx *mlctx.Context, inputs []*graph.Node) []*graph.Node {
		return om.CallGraph(ctx.Reuse(), inputs[0].Graph(), map[string]*graph.Node{
			inputName: inputs[0],
		})
	})
	if err != nil {
		return nil, fmt.Errorf("compiling inference graph: %w", err)
	}

	return &xlaBackend{
		engineType:  engineType,
		engine:      engine,
		exec:        exec,
		layout:      layout,
		outputIndex: outputIndex,
		scratch:     make([]float32, shapeLen(layout.InputShape)),
	}, nil
}

// safeNewEngine creates a GoMLX engine, catching panics from PJRT plugins
// that do not handle missing accelerators gracefully.
func safeNewEngine(engineType string) (engine backends.Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine = nil
			err = fmt.Errorf("engine %q panicked during initialization: %v", engineType, r)
		}
	}()
	return backends.NewWithConfig(engineType)
}

func safeNewExec(engine backends.Backend, mlCtx *mlctx.Context, fn func(*mlctx.Context, []*graph.Node) []*graph.Node) (exec *mlctx.Exec, err error) {
	defer func() {
		if r := recover(); r != nil {
			exec = nil
			err = fmt.Errorf("graph compilation panicked: %v", r)
		}
	}()
	return mlctx.NewExecAny(engine, mlCtx, fn)
}

func (b *xlaBackend) Name() string { return "gomlx-" + b.engineType }

func (b *xlaBackend) Scratch() []float32 { return b.scratch }

func (b *xlaBackend) Run() ([]float32, error) {
	if b.exec == nil {
		return nil, fmt.Errorf("backend is closed")
	}
	input := tensors.FromFlatDataAndDimensions(b.scratch, int64sToInts(b.layout.InputShape)...)
	results, err := b.safeExec(input)
	if err != nil {
		return nil, err
	}
	if b.outputIndex >= len(results) {
		return nil, fmt.Errorf("model produced %d outputs, expected at least %d", len(results), b.outputIndex+1)
	}

	flat := flattenFloat32(results[b.outputIndex].Value())
	if want := shapeLen(b.layout.OutputShape); int64(len(flat)) != want {
		return nil, fmt.Errorf("model output has %d elements, expected %d", len(flat), want)
	}
	return flat, nil
}

func (b *xlaBackend) safeExec(input *tensors.Tensor) (results []*tensors.Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("inference panicked: %v", r)
		}
	}()
	return b.exec.Exec(input)
}

func (b *xlaBackend) Close() error {
	b.exec = nil
	b.engine = nil
	return nil
}

// flattenFloat32 flattens nested slices returned by tensor Value calls into a
// contiguous slice.
func flattenFloat32(val interface{}) []float32 {
	switch v := val.(type) {
	case []float32:
		return v
	case [][]float32:
		var result []float32
		for _, row := range v {
			result = append(result, row...)
		}
		return result
	case [][][]float32:
		var result []float32
		for _, matrix := range v {
			for _, row := range matrix {
				result = append(result, row...)
			}
		}
		return result
	case [][][][]float32:
		var result []float32
		for _, cube := range v {
			for _, matrix := range cube {
				for _, row := range matrix {
					result = append(result, row...)
				}
			}
		}
		return result
	default:
		return nil
	}
}

func shapeLen(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
