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
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initORT initializes the ONNX Runtime library once per process.
func initORT() error {
	ortInitOnce.Do(func() {
		if libPath := getOnnxLibraryPath(); libPath != "" {
			ort.SetSharedLibraryPath(filepath.Join(libPath, getOnnxLibraryName()))
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// getOnnxLibraryPath returns the directory containing libonnxruntime from
// environment. Checks ONNXRUNTIME_ROOT first, then LD_LIBRARY_PATH (or
// DYLD_LIBRARY_PATH on macOS).
func getOnnxLibraryPath() string {
	platform := runtime.GOOS + "-" + runtime.GOARCH
	libName := getOnnxLibraryName()

	if root := os.Getenv("ONNXRUNTIME_ROOT"); root != "" {
		platformDir := filepath.Join(root, platform, "lib")
		if _, err := os.Stat(filepath.Join(platformDir, libName)); err == nil {
			return platformDir
		}
		directDir := filepath.Join(root, "lib")
		if _, err := os.Stat(filepath.Join(directDir, libName)); err == nil {
			return directDir
		}
	}

	ldPath := os.Getenv("LD_LIBRARY_PATH")
	if runtime.GOOS == "darwin" {
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			ldPath = dyldPath
		}
	}
	if ldPath != "" {
		for _, dir := range filepath.SplitList(ldPath) {
			if _, err := os.Stat(filepath.Join(dir, libName)); err == nil {
				return dir
			}
		}
	}

	return ""
}

// getOnnxLibraryName returns the platform-specific library name.
func getOnnxLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// ortBackend runs the model on CPU through ONNX Runtime. The input tensor
// wraps the scratch slice, so filling Scratch and calling Run feeds the
// session without copies.
type ortBackend struct {
	session     *ort.DynamicAdvancedSession
	sessionOpts *ort.SessionOptions
	inputTensor *ort.Tensor[float32]
	layout      *ModelLayout
	scratch     []float32
	out         []float32
}

// newORTBackend creates a CPU session from the serialized model, without
// writing it to disk.
func newORTBackend(modelBytes []byte, layout *ModelLayout, numThreads int) (*ortBackend, error) {
	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX Runtime: %w", err)
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	if numThreads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(numThreads); err != nil {
			sessionOpts.Destroy()
			return nil, fmt.Errorf("setting thread count: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(modelBytes,
		[]string{layout.InputName},
		[]string{layout.OutputName},
		sessionOpts)
	if err != nil {
		sessionOpts.Destroy()
		return nil, fmt.Errorf("creating ONNX session: %w", err)
	}

	scratch := make([]float32, shapeLen(layout.InputShape))
	inputTensor, err := ort.NewTensor(ort.NewShape(layout.InputShape...), scratch)
	if err != nil {
		session.Destroy()
		sessionOpts.Destroy()
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}

	return &ortBackend{
		session:     session,
		sessionOpts: sessionOpts,
		inputTensor: inputTensor,
		layout:      layout,
		scratch:     scratch,
	}, nil
}

func (b *ortBackend) Name() string { return "onnxruntime" }

func (b *ortBackend) Scratch() []float32 { return b.scratch }

func (b *ortBackend) Run() ([]float32, error) {
	if b.session == nil {
		return nil, fmt.Errorf("backend is closed")
	}

	outputTensors := []ort.Value{nil}
	if err := b.session.Run([]ort.Value{b.inputTensor}, outputTensors); err != nil {
		return nil, fmt.Errorf("running ONNX session: %w", err)
	}
	outputTensor := outputTensors[0]
	if outputTensor == nil {
		return nil, fmt.Errorf("no output tensor returned")
	}
	defer outputTensor.Destroy()

	floatTensor, ok := outputTensor.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32")
	}
	data := floatTensor.GetData()
	if want := shapeLen(b.layout.OutputShape); int64(len(data)) != want {
		return nil, fmt.Errorf("model output has %d elements, expected %d", len(data), want)
	}

	if b.out == nil {
		b.out = make([]float32, len(data))
	}
	copy(b.out, data)
	return b.out, nil
}

func (b *ortBackend) Close() error {
	if b.inputTensor != nil {
		b.inputTensor.Destroy()
		b.inputTensor = nil
	}
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	if b.sessionOpts != nil {
		b.sessionOpts.Destroy()
		b.sessionOpts = nil
	}
	return nil
}
