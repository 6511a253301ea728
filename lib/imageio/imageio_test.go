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
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientImage(width, height int) *Image {
	img := NewImage(width, height)
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[i] = uint16(x * 65535 / (width - 1))
			img.Pix[i+1] = uint16(y * 65535 / (height - 1))
			img.Pix[i+2] = uint16((x + y) * 999)
			i += 3
		}
	}
	return img
}

func TestPNGRoundTripKeeps16Bits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	src := gradientImage(17, 9)

	require.NoError(t, Save(src, path))

	got, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, src.Width, got.Width)
	assert.Equal(t, src.Height, got.Height)
	assert.Equal(t, src.Pix, got.Pix)
}

func TestTIFFRoundTripKeeps16Bits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tif")
	src := gradientImage(8, 8)

	require.NoError(t, Save(src, path))

	got, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.Pix)
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	err := Save(gradientImage(2, 2), filepath.Join(dir, "out.webp"))
	require.Error(t, err)
}

func TestFromGoImageScales8BitUp(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff})

	img := FromGoImage(src)
	// 8-bit samples replicate into the high and low byte.
	assert.Equal(t, uint16(0xffff), img.Pix[0])
	assert.Equal(t, uint16(0x8080), img.Pix[1])
	assert.Equal(t, uint16(0x0000), img.Pix[2])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"), nil)
	require.Error(t, err)
}
