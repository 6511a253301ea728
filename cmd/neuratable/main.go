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

// Command neuratable processes photographs with neural networks.
//
// Images are tiled, run through an ONNX model on the best available
// accelerator, and reassembled with blended seams at the full 16-bit depth.
//
// Usage:
//
//	neuratable denoise --model unet.onnx IMG_1234.RAF out/%NAME%.tif
//	neuratable backends                 # Report detected accelerators
package main

import (
	"github.com/mayjs/NeuraTable/cmd/neuratable/cmd"
)

// https://goreleaser.com/cookbooks/using-main.version/
var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
