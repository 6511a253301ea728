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

// Backend executes one fixed-shape model over a persistent scratch buffer.
// Callers fill Scratch with the next input in the model's layout, call Run,
// and read the returned flat output before the next Run. Implementations keep
// their sessions and buffers alive across calls so per-tile inference does
// not reallocate.
type Backend interface {
	// Name identifies the execution engine, for logs and metrics.
	Name() string

	// Scratch returns the reusable input buffer. Its length matches the
	// model input shape for a single batch.
	Scratch() []float32

	// Run executes the model on the current scratch contents. The returned
	// slice is owned by the backend and valid until the next Run.
	Run() ([]float32, error)

	// Close releases sessions and native resources.
	Close() error
}
