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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOutputPattern(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		pattern string
		want    string
		wantErr bool
	}{
		{
			name:    "placeholder with extension",
			input:   "shoot/IMG_1234.RAF",
			pattern: "out/%NAME%.tif",
			want:    "out/IMG_1234.tif",
		},
		{
			name:    "placeholder inherits input extension",
			input:   "shoot/IMG_1234.png",
			pattern: "out/%NAME%_denoised",
			want:    "out/IMG_1234_denoised.png",
		},
		{
			name:    "fixed output path",
			input:   "noisy.png",
			pattern: "clean.png",
			want:    "clean.png",
		},
		{
			name:    "double placeholder",
			input:   "a.jpg",
			pattern: "%NAME%/%NAME%.jpg",
			want:    "a/a.jpg",
		},
		{
			name:    "no extension anywhere",
			input:   "noisy",
			pattern: "out/%NAME%",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderOutputPattern(tt.input, tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseColorModel(t *testing.T) {
	cm, err := parseColorModel("RGB")
	require.NoError(t, err)
	assert.Equal(t, "rgb", string(cm))

	cm, err = parseColorModel("bgr")
	require.NoError(t, err)
	assert.Equal(t, "bgr", string(cm))

	_, err = parseColorModel("cmyk")
	require.Error(t, err)
}
