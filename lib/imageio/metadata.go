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
	"os/exec"

	"go.uber.org/zap"
)

// MetadataHandler copies EXIF metadata from source to processed images via
// exiftool. When exiftool is not installed the handler degrades to a no-op
// and metadata is lost.
type MetadataHandler struct {
	hasExiftool bool
	logger      *zap.Logger
}

// NewMetadataHandler probes for exiftool once.
func NewMetadataHandler(logger *zap.Logger) *MetadataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	hasExiftool := exec.Command("exiftool", "-ver").Run() == nil
	if !hasExiftool {
		logger.Error("exiftool could not be executed, image metadata will be lost after processing")
	}
	return &MetadataHandler{hasExiftool: hasExiftool, logger: logger}
}

// CopyMetadata transfers all tags from source to destination in place.
func (m *MetadataHandler) CopyMetadata(source, destination string) error {
	if !m.hasExiftool {
		return nil
	}
	cmd := exec.Command("exiftool", "-overwrite_original", "-tagsFromFile", source, destination)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("exiftool failed for %s: %w: %s", source, err, output)
	}
	return nil
}
