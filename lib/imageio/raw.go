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

package imageio

import (
	"fmt"
	"os"
	"os/exec"
)

// ConvertRAW develops a camera RAW file into a 16-bit TIFF using
// darktable-cli and returns the path of the temporary TIFF. The caller owns
// the returned file.
func ConvertRAW(path string) (string, error) {
	darktable, err := exec.LookPath("darktable-cli")
	if err != nil {
		return "", fmt.Errorf("darktable-cli not found: %w", err)
	}

	tmp, err := os.CreateTemp("", "neuratable-*.tif")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// darktable-cli refuses to overwrite existing files.
	os.Remove(tmpPath)

	cmd := exec.Command(darktable, path, tmpPath, //nolint:gosec // G204: darktable path comes from LookPath("darktable-cli")
		"--core",
		"--conf", "plugins/imageio/format/tiff/bpp=16")
	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("darktable-cli failed: %w: %s", err, output)
	}
	return tmpPath, nil
}
