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

// Package imageio reads and writes the 16-bit RGB images the processing
// pipeline works on. Camera RAW files are converted through darktable-cli
// when the standard decoders cannot handle them.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Image is a 16-bit RGB image with interleaved pixels (row-major, three
// samples per pixel).
type Image struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewImage allocates a zeroed image.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint16, width*height*3),
	}
}

// FromGoImage converts any decoded image to 16-bit RGB. The color.RGBA
// interface already yields 16-bit samples, so 8-bit sources are scaled up
// losslessly.
func FromGoImage(src image.Image) *Image {
	bounds := src.Bounds()
	img := NewImage(bounds.Dx(), bounds.Dy())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			img.Pix[i] = uint16(r)
			img.Pix[i+1] = uint16(g)
			img.Pix[i+2] = uint16(b)
			i += 3
		}
	}
	return img
}

// ToNRGBA64 converts back to a standard library image for encoding.
func (img *Image) ToNRGBA64() *image.NRGBA64 {
	out := image.NewNRGBA64(image.Rect(0, 0, img.Width, img.Height))
	i := 0
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.SetNRGBA64(x, y, color.NRGBA64{
				R: img.Pix[i],
				G: img.Pix[i+1],
				B: img.Pix[i+2],
				A: 0xffff,
			})
			i += 3
		}
	}
	return out
}

// Load reads an image file. Formats the standard decoders do not understand
// are converted to 16-bit TIFF through darktable-cli first, so camera RAW
// files load transparently when darktable is installed.
func Load(path string, logger *zap.Logger) (*Image, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	img, err := decodeFile(path)
	if err == nil {
		return img, nil
	}

	logger.Warn("standard decode failed, trying darktable conversion",
		zap.String("path", path),
		zap.Error(err))

	tmp, rawErr := ConvertRAW(path)
	if rawErr != nil {
		return nil, fmt.Errorf("decoding %s: %w (raw conversion also failed: %v)", path, err, rawErr)
	}
	defer os.Remove(tmp)

	return decodeFile(tmp)
}

func decodeFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return FromGoImage(src), nil
}

// Save writes the image in the format implied by the file extension. PNG and
// TIFF keep the full 16-bit depth; JPEG and BMP fall back to 8 bits.
func Save(img *Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img.ToNRGBA64())
	case ".tif", ".tiff":
		err = tiff.Encode(f, img.ToNRGBA64(), &tiff.Options{Compression: tiff.Deflate})
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img.ToNRGBA64(), &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(f, img.ToNRGBA64())
	default:
		f.Close()
		os.Remove(path)
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
