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

// ChunkSize is the spatial extent of a model input tile.
type ChunkSize struct {
	Width  int
	Height int
}

// RemainingAreaAfterPadding returns the tile extent left after removing a
// context border of the given padding on every side.
func (c ChunkSize) RemainingAreaAfterPadding(padding int) ChunkSize {
	return ChunkSize{
		Width:  c.Width - 2*padding,
		Height: c.Height - 2*padding,
	}
}

// StepSizeWithOverlap returns the grid step that makes adjacent tiles share
// the given overlap.
func (c ChunkSize) StepSizeWithOverlap(overlap int) ChunkSize {
	return ChunkSize{
		Width:  c.Width - overlap,
		Height: c.Height - overlap,
	}
}

// MinDim returns the smaller of width and height.
func (c ChunkSize) MinDim() int {
	if c.Width < c.Height {
		return c.Width
	}
	return c.Height
}
