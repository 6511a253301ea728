// Copyright 2026 The NeuraTable Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
)

// namePlaceholder is replaced with the input filename (without extension) in
// output patterns.
const namePlaceholder = "%NAME%"

// renderOutputPattern expands an output pattern for one input file. When the
// expanded path has no extension, the input's extension is inherited.
func renderOutputPattern(input, pattern string) (string, error) {
	ext := filepath.Ext(input)
	name := strings.TrimSuffix(filepath.Base(input), ext)
	if name == "" {
		return "", fmt.Errorf("input %q has no filename", input)
	}

	output := strings.ReplaceAll(pattern, namePlaceholder, name)
	if filepath.Ext(output) == "" {
		if ext == "" {
			return "", fmt.Errorf("neither output pattern %q nor input %q has an extension", pattern, input)
		}
		output += ext
	}
	return output, nil
}
